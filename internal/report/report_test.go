package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracebench/internal/models"
)

func sampleDistribution() *models.DistributionReport {
	return &models.DistributionReport{
		Source:         "data/1S_10_25.json",
		TraceCount:     6,
		TraceDurations: []float64{13, 10, 100, 11, 12},
		Filtered:       []float64{13, 10, 11, 12},
		ServiceDurations: map[string][]float64{
			"validation-service": {3, 1, 2},
			"mqtt-consumer":      {5, 4},
		},
		LowerBound:             8,
		UpperBound:             16,
		AverageWithOutliers:    29.2,
		AverageWithoutOutliers: 11.5,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in       string
		expected Format
		wantErr  bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"markdown", FormatMarkdown, false},
		{"png", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 1, 2, 3, 4}, 2)
	require.Len(t, bins, 2)
	assert.Equal(t, Bin{Low: 0, High: 2, Count: 2}, bins[0])
	assert.Equal(t, Bin{Low: 2, High: 4, Count: 3}, bins[1])
}

func TestHistogramSingleValue(t *testing.T) {
	bins := Histogram([]float64{5, 5}, 3)
	require.Len(t, bins, 3)
	assert.Equal(t, []int{0, 2, 0}, []int{bins[0].Count, bins[1].Count, bins[2].Count})
	assert.Equal(t, 4.5, bins[0].Low)
	assert.Equal(t, 5.5, bins[2].High)
}

func TestHistogramEmpty(t *testing.T) {
	assert.Nil(t, Histogram(nil, 30))
}

func TestSummaryText(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatText, 0, 0, 0)

	require.NoError(t, w.Summary("Dataset 50", models.Summary{
		AverageDurationMs:         29.2,
		NumTracesInWindow:         5,
		AverageDurationNoOutliers: 11.5,
		NumTracesNoOutliers:       4,
	}))

	out := buf.String()
	assert.Contains(t, out, "Dataset 50")
	assert.Contains(t, out, "29.20 ms")
	assert.Contains(t, out, "11.50 ms")
}

func TestSummaryJSONKeys(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatJSON, 0, 0, 0)
	require.NoError(t, w.Summary("ignored", models.Summary{AverageDurationMs: 70, NumTracesInWindow: 1, AverageDurationNoOutliers: 70, NumTracesNoOutliers: 1}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded, 4)
	assert.Equal(t, 70.0, decoded["average_duration_ms"])
	assert.Equal(t, 1.0, decoded["num_traces_in_window"])
	assert.Equal(t, 70.0, decoded["average_duration_no_outliers"])
	assert.Equal(t, 1.0, decoded["num_traces_no_outliers"])
}

func TestComparisonText(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, FormatText, 0, 0, 0)

	require.NoError(t, w.Comparison([]models.DatasetResult{
		{Name: "1", Rate: 1, Summary: &models.Summary{AverageDurationMs: 12.34, NumTracesInWindow: 100, AverageDurationNoOutliers: 11, NumTracesNoOutliers: 97}},
		{Name: "50", Rate: 50, Error: "dataset 50: no data"},
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "DATASET")
	assert.Contains(t, lines[1], "12.34")
	assert.Contains(t, lines[2], "error: dataset 50: no data")
}

func TestDistributionTextDoesNotMutateInput(t *testing.T) {
	d := sampleDistribution()
	before := append([]float64(nil), d.TraceDurations...)
	serviceBefore := append([]float64(nil), d.ServiceDurations["validation-service"]...)

	var buf bytes.Buffer
	w := NewWriter(&buf, FormatText, 5, 20, 1.5)
	require.NoError(t, w.Distribution(d))

	assert.Equal(t, before, d.TraceDurations)
	assert.Equal(t, serviceBefore, d.ServiceDurations["validation-service"])

	out := buf.String()
	assert.Contains(t, out, "Boxplot of trace durations")
	assert.Contains(t, out, "Histogram of trace durations (outliers removed)")
	assert.Contains(t, out, "Span durations for mqtt-consumer")
	assert.Contains(t, out, "Span durations for validation-service")
	assert.Less(t, strings.Index(out, "mqtt-consumer"), strings.Index(out, "validation-service"))
}

func TestDistributionMarkdown(t *testing.T) {
	md := DistributionMarkdown(sampleDistribution())
	assert.Contains(t, md, "- Outlier fence: 8.00 ms .. 16.00 ms")
	assert.Contains(t, md, "| mqtt-consumer | 2 |")
}

func TestComparisonMarkdown(t *testing.T) {
	md := ComparisonMarkdown([]models.DatasetResult{
		{Name: "10", Rate: 10, Summary: &models.Summary{AverageDurationMs: 1.5, NumTracesInWindow: 2, AverageDurationNoOutliers: 1.5, NumTracesNoOutliers: 2}},
	})
	assert.Contains(t, md, "| 10 | 10 | 2 | 1.50 | 2 | 1.50 |")
}

func TestWriteMarkdownFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	now := time.Date(2024, 10, 25, 14, 30, 0, 0, time.UTC)

	path, err := WriteMarkdownFile(dir, "dataset 50/v3", SummaryMarkdown("Dataset 50", models.Summary{NumTracesInWindow: 3}), now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-10-25-143000-dataset-50-v3.md"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(body), "# tracebench report: dataset 50/v3\n"))
	assert.Contains(t, string(body), "| Traces in window | 3 |")
}
