package aggregator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracebench/internal/loader"
)

// jaegerDoc builds a document with one trace per duration (microseconds), each made of a
// consumer span and a persistence span that together cover the full duration.
func jaegerDoc(durationsUs ...int) string {
	var entries []string
	for i, d := range durationsUs {
		start := 1_000_000 * (i + 1)
		entries = append(entries, fmt.Sprintf(`{
			"traceID": "trace-%d",
			"spans": [
				{"process": {"serviceName": "mqtt-consumer"}, "startTime": %d, "duration": %d},
				{"process": {"serviceName": "persistence-service"}, "startTime": %d, "duration": %d}
			]
		}`, i, start, d/2, start+d/2, d-d/2))
	}
	return `{"data": [` + strings.Join(entries, ",") + `]}`
}

func TestDistribution(t *testing.T) {
	path := filepath.Join(t.TempDir(), "1S_10_25.json")
	require.NoError(t, os.WriteFile(path, []byte(jaegerDoc(10_000, 11_000, 12_000, 13_000, 100_000)), 0o644))

	report, err := newTestAggregator().Distribution(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 5, report.TraceCount)
	assert.Equal(t, []float64{10, 11, 12, 13, 100}, report.TraceDurations)
	assert.Equal(t, []float64{10, 11, 12, 13}, report.Filtered)
	assert.Equal(t, 8.0, report.LowerBound)
	assert.Equal(t, 16.0, report.UpperBound)
	assert.Equal(t, 29.2, report.AverageWithOutliers)
	assert.Equal(t, 11.5, report.AverageWithoutOutliers)

	require.Contains(t, report.ServiceDurations, "mqtt-consumer")
	require.Contains(t, report.ServiceDurations, "persistence-service")
	assert.Equal(t, []float64{5, 5.5, 6, 6.5, 50}, report.ServiceDurations["mqtt-consumer"])
}

func TestDistributionCountsDurationOnlySpansPerService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	doc := `{"data": [
		{"traceID": "a", "spans": [
			{"process": {"serviceName": "mqtt-consumer"}, "startTime": 1000, "duration": 10000},
			{"process": {"serviceName": "mqtt-consumer"}, "duration": 4000}
		]},
		{"traceID": "b", "spans": [
			{"process": {"serviceName": "validation-service"}, "duration": 2000}
		]}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	report, err := newTestAggregator().Distribution(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 2, report.TraceCount)
	assert.Equal(t, []float64{10}, report.TraceDurations)
	assert.Equal(t, []float64{10, 4}, report.ServiceDurations["mqtt-consumer"])
	assert.Equal(t, []float64{2}, report.ServiceDurations["validation-service"])
}

func TestDistributionMissingFile(t *testing.T) {
	_, err := newTestAggregator().Distribution(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, loader.ErrFileNotFound)
}

func TestDistributionNoComputableTraces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"data": [{"spans": [{"startTime": 5}]}]}`), 0o644))

	_, err := newTestAggregator().Distribution(context.Background(), path)
	assert.ErrorIs(t, err, ErrNoData)
}
