// Package aggregator merges per-component trace logs into traces and computes
// outlier-robust latency statistics over them.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"tracebench/internal/loader"
	"tracebench/internal/models"
	"tracebench/internal/stats"
)

// ErrNoData is returned when no trace survives loading, grouping or windowing.
var ErrNoData = errors.New("no data")

// SpanLoader loads one trace file into canonical spans.
type SpanLoader interface {
	Load(path string, format loader.Format) (*loader.Result, error)
}

// NegativePolicy decides what happens to traces whose end precedes their start.
type NegativePolicy string

const (
	NegativeKeep  NegativePolicy = "keep"
	NegativeDrop  NegativePolicy = "drop"
	NegativeClamp NegativePolicy = "clamp"
)

// ParseNegativePolicy validates a policy name. An empty name selects NegativeKeep.
func ParseNegativePolicy(s string) (NegativePolicy, error) {
	switch p := NegativePolicy(s); p {
	case "":
		return NegativeKeep, nil
	case NegativeKeep, NegativeDrop, NegativeClamp:
		return p, nil
	default:
		return "", fmt.Errorf("unknown negative duration policy %q", s)
	}
}

// Aggregator computes trace statistics from trace files.
type Aggregator struct {
	loader        SpanLoader
	logger        *slog.Logger
	iqrMultiplier float64
	parallel      bool
	negative      NegativePolicy
}

// Merged is the grouped result of loading a list of files.
type Merged struct {
	Traces    []models.Trace
	SpanCount int
	Dropped   int

	// Skipped combines the errors of files that were missing or malformed. Nil when every file loaded.
	Skipped error
}

// SkippedFiles returns the individual per-file errors behind Skipped.
func (m *Merged) SkippedFiles() []error {
	return multierr.Errors(m.Skipped)
}

// New creates an Aggregator reading files through ld.
func New(ld SpanLoader, opts ...Option) *Aggregator {
	a := &Aggregator{
		loader:        ld,
		logger:        slog.Default(),
		iqrMultiplier: stats.DefaultIQRMultiplier,
		parallel:      true,
		negative:      NegativeKeep,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MergeAndCalculate loads every file, groups spans into traces, applies the optional window and
// summarizes the result. A nil window keeps every trace.
func (a *Aggregator) MergeAndCalculate(ctx context.Context, paths []string, window *models.Window) (*models.Summary, error) {
	logger := a.logger.With("run_id", uuid.New().String())

	merged, err := a.merge(ctx, paths, logger)
	if err != nil {
		return nil, err
	}

	traces := ApplyWindow(merged.Traces, window)
	if window != nil {
		logger.Debug("Applied time window", "window", window.Length.String(), "kept", len(traces), "total", len(merged.Traces))
	}

	summary, err := a.Summarize(traces)
	if err != nil {
		logger.Warn("Aggregation produced no data", "files", len(paths), "skipped", len(merged.SkippedFiles()))
		return nil, err
	}

	logger.Info("Aggregation complete",
		"files", len(paths),
		"spans", merged.SpanCount,
		"traces", summary.NumTracesInWindow,
		"traces_no_outliers", summary.NumTracesNoOutliers,
		"average_ms", summary.AverageDurationMs,
	)
	return summary, nil
}

// Merge loads every file and groups the concatenated spans into traces.
func (a *Aggregator) Merge(ctx context.Context, paths []string) (*Merged, error) {
	return a.merge(ctx, paths, a.logger.With("run_id", uuid.New().String()))
}

func (a *Aggregator) merge(ctx context.Context, paths []string, logger *slog.Logger) (*Merged, error) {
	results, err := a.loadAll(ctx, paths)
	if err != nil {
		return nil, err
	}

	merged := &Merged{}
	var spans []models.Span
	for i, r := range results {
		if r.err != nil {
			if !loader.IsRecoverable(r.err) {
				return nil, fmt.Errorf("failed to load %s: %w", paths[i], r.err)
			}
			logger.Warn("Skipping trace file", "path", paths[i], "error", r.err)
			merged.Skipped = multierr.Append(merged.Skipped, r.err)
			continue
		}
		if r.res.Dropped > 0 {
			logger.Debug("Dropped unusable records", "path", paths[i], "dropped", r.res.Dropped)
		}
		merged.Dropped += r.res.Dropped
		spans = append(spans, r.res.Spans...)
	}

	merged.SpanCount = len(spans)
	merged.Traces = a.applyNegativePolicy(GroupTraces(spans))
	return merged, nil
}

type loadResult struct {
	res *loader.Result
	err error
}

// loadAll loads the files, concurrently when enabled, and returns results in file-list order
// once every load has finished.
func (a *Aggregator) loadAll(ctx context.Context, paths []string) ([]loadResult, error) {
	results := make([]loadResult, len(paths))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !a.parallel {
		for i, p := range paths {
			res, err := a.loader.Load(p, loader.FormatLines)
			results[i] = loadResult{res: res, err: err}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		return results, nil
	}

	type indexed struct {
		i int
		loadResult
	}
	resultCh := make(chan indexed, len(paths))
	for i, p := range paths {
		go func(i int, p string) {
			res, err := a.loader.Load(p, loader.FormatLines)
			resultCh <- indexed{i: i, loadResult: loadResult{res: res, err: err}}
		}(i, p)
	}

	for range paths {
		r := <-resultCh
		results[r.i] = r.loadResult
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// GroupTraces reduces spans to one trace per trace id: earliest start, latest end and their
// difference. Traces are ordered by start time, then trace id.
func GroupTraces(spans []models.Span) []models.Trace {
	index := make(map[string]int)
	var traces []models.Trace

	for _, s := range spans {
		i, ok := index[s.TraceID]
		if !ok {
			index[s.TraceID] = len(traces)
			traces = append(traces, models.Trace{
				TraceID:   s.TraceID,
				Start:     s.Start,
				End:       s.End,
				SpanCount: 1,
			})
			continue
		}
		t := &traces[i]
		if s.Start < t.Start {
			t.Start = s.Start
		}
		if s.End > t.End {
			t.End = s.End
		}
		t.SpanCount++
	}

	for i := range traces {
		setDuration(&traces[i], traces[i].End-traces[i].Start)
	}

	sort.Slice(traces, func(i, j int) bool {
		if traces[i].Start != traces[j].Start {
			return traces[i].Start < traces[j].Start
		}
		return traces[i].TraceID < traces[j].TraceID
	})
	return traces
}

func setDuration(t *models.Trace, ns int64) {
	t.DurationNs = ns
	t.DurationMs = models.NanosToMillis(ns)
}

// ApplyWindow keeps traces whose start lies within window of the earliest trace start, inclusive.
// A nil window returns traces unchanged.
func ApplyWindow(traces []models.Trace, window *models.Window) []models.Trace {
	if window == nil || len(traces) == 0 {
		return traces
	}

	earliest := traces[0].Start
	for _, t := range traces[1:] {
		if t.Start < earliest {
			earliest = t.Start
		}
	}

	cutoff := int64(math.MaxInt64)
	if w := window.Nanos(); earliest <= 0 || w <= math.MaxInt64-earliest {
		cutoff = earliest + w
	}
	kept := make([]models.Trace, 0, len(traces))
	for _, t := range traces {
		if t.Start <= cutoff {
			kept = append(kept, t)
		}
	}
	return kept
}

func (a *Aggregator) applyNegativePolicy(traces []models.Trace) []models.Trace {
	switch a.negative {
	case NegativeDrop:
		kept := traces[:0]
		for _, t := range traces {
			if t.DurationNs >= 0 {
				kept = append(kept, t)
			}
		}
		return kept
	case NegativeClamp:
		for i := range traces {
			if traces[i].DurationNs < 0 {
				setDuration(&traces[i], 0)
			}
		}
	}
	return traces
}

// Summarize computes the mean trace duration with and without IQR outliers.
func (a *Aggregator) Summarize(traces []models.Trace) (*models.Summary, error) {
	if len(traces) == 0 {
		return nil, ErrNoData
	}
	durations := models.Durations(traces)

	avg, err := stats.Mean(durations)
	if err != nil {
		return nil, fmt.Errorf("failed to average trace durations: %w", err)
	}

	lower, upper, err := stats.Fence(durations, a.iqrMultiplier)
	if err != nil {
		return nil, fmt.Errorf("failed to compute outlier fence: %w", err)
	}

	filtered := stats.FilterWithin(durations, lower, upper)
	if len(filtered) == 0 {
		return nil, fmt.Errorf("%w: every trace fell outside [%.2f, %.2f]", ErrNoData, lower, upper)
	}
	avgFiltered, err := stats.Mean(filtered)
	if err != nil {
		return nil, fmt.Errorf("failed to average filtered durations: %w", err)
	}

	return &models.Summary{
		AverageDurationMs:         stats.Round2(avg),
		NumTracesInWindow:         len(traces),
		AverageDurationNoOutliers: stats.Round2(avgFiltered),
		NumTracesNoOutliers:       len(filtered),
	}, nil
}
