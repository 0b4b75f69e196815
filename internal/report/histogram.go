package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"tracebench/internal/stats"
)

// Bin is one equal-width histogram bucket. Every bin is half-open except the last, which
// also includes High.
type Bin struct {
	Low   float64
	High  float64
	Count int
}

// Histogram splits values into n equal-width bins over [min, max]. A sample with a single
// distinct value gets one bin of width 1 centred on it.
func Histogram(values []float64, n int) []Bin {
	if len(values) == 0 || n <= 0 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Low = lo + float64(i)*width
		bins[i].High = lo + float64(i+1)*width
	}
	bins[n-1].High = hi

	for _, v := range values {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		if i < 0 {
			i = 0
		}
		bins[i].Count++
	}
	return bins
}

// renderHistogram draws bins as horizontal bars scaled so the fullest bin spans width cells.
func renderHistogram(w io.Writer, title string, bins []Bin, width int) {
	fmt.Fprintf(w, "%s\n", title)
	if len(bins) == 0 {
		fmt.Fprintln(w, "  (no data)")
		return
	}

	peak := 0
	for _, b := range bins {
		if b.Count > peak {
			peak = b.Count
		}
	}
	for _, b := range bins {
		bar := 0
		if peak > 0 {
			bar = int(math.Round(float64(b.Count) / float64(peak) * float64(width)))
		}
		fmt.Fprintf(w, "  %10.2f - %10.2f ms | %-*s %d\n", b.Low, b.High, width, strings.Repeat("#", bar), b.Count)
	}
}

// renderBox draws a one-line boxplot of box scaled to width cells, followed by its numbers.
func renderBox(w io.Writer, box stats.Box, width int) {
	span := box.Max - box.Min
	pos := func(v float64) int {
		if span == 0 {
			return 0
		}
		p := int(math.Round((v - box.Min) / span * float64(width-1)))
		return max(0, min(width-1, p))
	}

	line := []rune(strings.Repeat(" ", width))
	for i := pos(box.Min); i <= pos(box.Max); i++ {
		line[i] = '-'
	}
	for i := pos(box.Q1); i <= pos(box.Q3); i++ {
		line[i] = '='
	}
	line[pos(box.Min)] = '|'
	line[pos(box.Max)] = '|'
	line[pos(box.Median)] = 'M'

	fmt.Fprintf(w, "  [%s]\n", string(line))
	fmt.Fprintf(w, "  min %.2f  q1 %.2f  median %.2f  q3 %.2f  max %.2f  (fence %.2f .. %.2f)\n",
		box.Min, box.Q1, box.Median, box.Q3, box.Max, box.Lower, box.Upper)
}
