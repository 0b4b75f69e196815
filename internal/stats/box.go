package stats

// Box is the five-number summary of a sample plus its Tukey fence.
type Box struct {
	Min    float64 `json:"min"`
	Q1     float64 `json:"q1"`
	Median float64 `json:"median"`
	Q3     float64 `json:"q3"`
	Max    float64 `json:"max"`
	Lower  float64 `json:"lower_fence"`
	Upper  float64 `json:"upper_fence"`
}

// IQR returns the interquartile range.
func (b Box) IQR() float64 {
	return b.Q3 - b.Q1
}

// BoxOf computes the five-number summary and fence of values with multiplier k.
func BoxOf(values []float64, k float64) (Box, error) {
	if len(values) == 0 {
		return Box{}, ErrEmpty
	}
	sorted := sortedCopy(values)
	b := Box{
		Min:    sorted[0],
		Q1:     percentileSorted(sorted, 25),
		Median: percentileSorted(sorted, 50),
		Q3:     percentileSorted(sorted, 75),
		Max:    sorted[len(sorted)-1],
	}
	b.Lower = b.Q1 - k*b.IQR()
	b.Upper = b.Q3 + k*b.IQR()
	return b, nil
}
