package metrics

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracebench/internal/models"
)

func TestObserve(t *testing.T) {
	r := NewRecorder()
	r.Observe("50", models.Summary{
		AverageDurationMs:         29.2,
		NumTracesInWindow:         5,
		AverageDurationNoOutliers: 11.5,
		NumTracesNoOutliers:       4,
	})

	assert.Equal(t, 29.2, testutil.ToFloat64(r.avg.WithLabelValues("50", "included")))
	assert.Equal(t, 11.5, testutil.ToFloat64(r.avg.WithLabelValues("50", "excluded")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.traces.WithLabelValues("50", "included")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.traces.WithLabelValues("50", "excluded")))
}

func TestObserveDistribution(t *testing.T) {
	r := NewRecorder()
	r.ObserveDistribution("1S_10_25", models.DistributionReport{
		TraceDurations:         []float64{10, 11, 12, 13, 100},
		Filtered:               []float64{10, 11, 12, 13},
		LowerBound:             8,
		UpperBound:             16,
		AverageWithOutliers:    29.2,
		AverageWithoutOutliers: 11.5,
	})

	assert.Equal(t, 8.0, testutil.ToFloat64(r.bound.WithLabelValues("1S_10_25", "lower")))
	assert.Equal(t, 16.0, testutil.ToFloat64(r.bound.WithLabelValues("1S_10_25", "upper")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.traces.WithLabelValues("1S_10_25", "excluded")))
}

func TestForget(t *testing.T) {
	r := NewRecorder()
	r.Observe("1", models.Summary{NumTracesInWindow: 1})
	r.Observe("10", models.Summary{NumTracesInWindow: 2})
	require.Equal(t, 4, testutil.CollectAndCount(r.traces))

	r.Forget("1")
	assert.Equal(t, 2, testutil.CollectAndCount(r.traces))
}

func TestHandler(t *testing.T) {
	r := NewRecorder()
	r.Observe("10", models.Summary{AverageDurationMs: 12.5, NumTracesInWindow: 3})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tracebench_trace_duration_avg_ms{dataset="10",outliers="included"} 12.5`)
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observe("1", models.Summary{AverageDurationMs: 7, NumTracesInWindow: 2})

	path := filepath.Join(t.TempDir(), "tracebench.prom")
	require.NoError(t, r.WriteTextfile(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), `tracebench_traces{dataset="1",outliers="included"} 2`)
}
