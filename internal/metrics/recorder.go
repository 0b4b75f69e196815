// Package metrics exposes aggregation summaries as Prometheus gauges, either over HTTP
// or as a node-exporter textfile.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tracebench/internal/models"
)

const namespace = "tracebench"

// Recorder holds the summary gauges in a private registry.
type Recorder struct {
	registry *prometheus.Registry
	avg      *prometheus.GaugeVec
	traces   *prometheus.GaugeVec
	bound    *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with its gauges registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		avg: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trace_duration_avg_ms",
			Help:      "Mean end-to-end trace duration in milliseconds.",
		}, []string{"dataset", "outliers"}),
		traces: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "traces",
			Help:      "Number of traces the mean was computed over.",
		}, []string{"dataset", "outliers"}),
		bound: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trace_duration_fence_ms",
			Help:      "Tukey outlier fence of trace durations in milliseconds.",
		}, []string{"dataset", "bound"}),
	}
	r.registry.MustRegister(r.avg, r.traces, r.bound)
	return r
}

// Observe records a merge summary under the dataset label.
func (r *Recorder) Observe(dataset string, s models.Summary) {
	r.avg.WithLabelValues(dataset, "included").Set(s.AverageDurationMs)
	r.avg.WithLabelValues(dataset, "excluded").Set(s.AverageDurationNoOutliers)
	r.traces.WithLabelValues(dataset, "included").Set(float64(s.NumTracesInWindow))
	r.traces.WithLabelValues(dataset, "excluded").Set(float64(s.NumTracesNoOutliers))
}

// ObserveDistribution records a distribution report, including its fence, under the dataset label.
func (r *Recorder) ObserveDistribution(dataset string, d models.DistributionReport) {
	r.Observe(dataset, models.Summary{
		AverageDurationMs:         d.AverageWithOutliers,
		NumTracesInWindow:         len(d.TraceDurations),
		AverageDurationNoOutliers: d.AverageWithoutOutliers,
		NumTracesNoOutliers:       len(d.Filtered),
	})
	r.bound.WithLabelValues(dataset, "lower").Set(d.LowerBound)
	r.bound.WithLabelValues(dataset, "upper").Set(d.UpperBound)
}

// Forget removes every series of a dataset.
func (r *Recorder) Forget(dataset string) {
	labels := prometheus.Labels{"dataset": dataset}
	r.avg.DeletePartialMatch(labels)
	r.traces.DeletePartialMatch(labels)
	r.bound.DeletePartialMatch(labels)
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current gauges to path for the node exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
