package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentileLinearInterpolation(t *testing.T) {
	values := []float64{4, 1, 3, 2}

	tests := []struct {
		name     string
		p        float64
		expected float64
	}{
		{"minimum", 0, 1},
		{"first quartile", 25, 1.75},
		{"median", 50, 2.5},
		{"third quartile", 75, 3.25},
		{"maximum", 100, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Percentile(values, tt.p)
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}

	assert.Equal(t, []float64{4, 1, 3, 2}, values, "input must not be reordered")
}

func TestPercentileSingleValue(t *testing.T) {
	got, err := Percentile([]float64{42}, 25)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got)
}

func TestPercentileEmpty(t *testing.T) {
	_, err := Percentile(nil, 50)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestFence(t *testing.T) {
	// Q1 = 2.0, Q3 = 4.0 for 1..5, IQR = 2
	lower, upper, err := Fence([]float64{1, 2, 3, 4, 5}, DefaultIQRMultiplier)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, lower, 1e-9)
	assert.InDelta(t, 7.0, upper, 1e-9)
}

func TestFenceMembership(t *testing.T) {
	values := []float64{10, 11, 12, 12, 13, 14, 15, 100, -50}
	lower, upper, err := Fence(values, DefaultIQRMultiplier)
	require.NoError(t, err)

	filtered := FilterWithin(values, lower, upper)
	for _, v := range values {
		inside := v >= lower && v <= upper
		if inside {
			assert.Contains(t, filtered, v)
		} else {
			assert.NotContains(t, filtered, v)
		}
	}
	assert.NotContains(t, filtered, 100.0)
	assert.NotContains(t, filtered, -50.0)
}

func TestFilterWithinIsInclusive(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, FilterWithin([]float64{0, 1, 2, 3, 4}, 1, 3))
}

func TestFenceEmpty(t *testing.T) {
	_, _, err := Fence(nil, DefaultIQRMultiplier)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestMean(t *testing.T) {
	m, err := Mean([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 2.5, m)

	_, err = Mean([]float64{})
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in       float64
		expected float64
	}{
		{70, 70},
		{1.234, 1.23},
		{0.125, 0.13},
		{0.375, 0.38},
		{-0.125, -0.13},
		{2.5, 2.5},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Round2(tt.in), "Round2(%v)", tt.in)
	}
}

func TestBoxOf(t *testing.T) {
	b, err := BoxOf([]float64{5, 1, 4, 2, 3}, DefaultIQRMultiplier)
	require.NoError(t, err)
	assert.Equal(t, 1.0, b.Min)
	assert.Equal(t, 2.0, b.Q1)
	assert.Equal(t, 3.0, b.Median)
	assert.Equal(t, 4.0, b.Q3)
	assert.Equal(t, 5.0, b.Max)
	assert.Equal(t, 2.0, b.IQR())
	assert.Equal(t, -1.0, b.Lower)
	assert.Equal(t, 7.0, b.Upper)

	_, err = BoxOf(nil, DefaultIQRMultiplier)
	assert.ErrorIs(t, err, ErrEmpty)
}
