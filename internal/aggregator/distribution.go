package aggregator

import (
	"context"
	"fmt"

	"tracebench/internal/loader"
	"tracebench/internal/models"
	"tracebench/internal/stats"
)

// Distribution analyses a single trace document: span durations per service, trace durations,
// and their averages with and without IQR outliers.
func (a *Aggregator) Distribution(ctx context.Context, path string) (*models.DistributionReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := a.loader.Load(path, loader.FormatDocument)
	if err != nil {
		return nil, fmt.Errorf("failed to load trace document: %w", err)
	}

	report := &models.DistributionReport{
		Source:           path,
		TraceCount:       res.TraceEntries,
		ServiceDurations: ServiceDurations(res.ServiceSpans),
	}

	traces := a.applyNegativePolicy(GroupTraces(res.Spans))
	if len(traces) == 0 {
		return nil, fmt.Errorf("%w: no trace with a computable duration in %s", ErrNoData, path)
	}
	report.TraceDurations = models.Durations(traces)

	report.LowerBound, report.UpperBound, err = stats.Fence(report.TraceDurations, a.iqrMultiplier)
	if err != nil {
		return nil, fmt.Errorf("failed to compute outlier fence: %w", err)
	}
	report.Filtered = stats.FilterWithin(report.TraceDurations, report.LowerBound, report.UpperBound)
	if len(report.Filtered) == 0 {
		return nil, fmt.Errorf("%w: nothing left after removing outliers", ErrNoData)
	}

	avg, err := stats.Mean(report.TraceDurations)
	if err != nil {
		return nil, err
	}
	avgFiltered, err := stats.Mean(report.Filtered)
	if err != nil {
		return nil, err
	}
	report.AverageWithOutliers = stats.Round2(avg)
	report.AverageWithoutOutliers = stats.Round2(avgFiltered)

	a.logger.Info("Distribution analysed",
		"path", path,
		"traces", report.TraceCount,
		"durations", len(report.TraceDurations),
		"durations_no_outliers", len(report.Filtered),
		"services", len(report.ServiceDurations),
	)
	return report, nil
}

// ServiceDurations groups span durations in milliseconds by service name, in input order.
func ServiceDurations(spans []models.Span) map[string][]float64 {
	out := make(map[string][]float64)
	for _, s := range spans {
		out[s.ServiceName] = append(out[s.ServiceName], s.DurationMs())
	}
	return out
}
