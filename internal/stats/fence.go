// Package stats holds the numeric primitives shared by the merge and distribution paths:
// interpolated percentiles, the Tukey outlier fence, means and rounding.
package stats

import (
	"errors"
	"math"
	"sort"
)

// DefaultIQRMultiplier is Tukey's k for the inner fence.
const DefaultIQRMultiplier = 1.5

// ErrEmpty is returned when a statistic is requested over no values.
var ErrEmpty = errors.New("no values")

// Percentile returns the p-th percentile (0..100) of values using linear interpolation
// between closest ranks. values is not modified.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmpty
	}
	sorted := sortedCopy(values)
	return percentileSorted(sorted, p), nil
}

func percentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	frac := rank - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Fence returns the lower and upper Tukey bounds Q1 - k*IQR and Q3 + k*IQR.
func Fence(values []float64, k float64) (lower, upper float64, err error) {
	if len(values) == 0 {
		return 0, 0, ErrEmpty
	}
	sorted := sortedCopy(values)
	q1 := percentileSorted(sorted, 25)
	q3 := percentileSorted(sorted, 75)
	iqr := q3 - q1
	return q1 - k*iqr, q3 + k*iqr, nil
}

// FilterWithin returns the values inside [lower, upper], preserving order.
func FilterWithin(values []float64, lower, upper float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= lower && v <= upper {
			out = append(out, v)
		}
	}
	return out
}

// Mean returns the arithmetic mean of values.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmpty
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// Round2 rounds to two decimal places, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}
