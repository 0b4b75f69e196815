// Package orchestrator runs the aggregation over named benchmark datasets, one per load rate.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"tracebench/internal/config"
	"tracebench/internal/models"
)

// ErrUnknownDataset is returned for a dataset name that is not configured.
var ErrUnknownDataset = errors.New("unknown dataset")

// Calculator computes a summary over a list of trace files.
type Calculator interface {
	MergeAndCalculate(ctx context.Context, paths []string, window *models.Window) (*models.Summary, error)
}

// Orchestrator coordinates aggregation runs across configured datasets.
type Orchestrator struct {
	calc     Calculator
	datasets []config.Dataset
	logger   *slog.Logger
}

// New creates a new orchestrator
func New(calc Calculator, datasets []config.Dataset, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		calc:     calc,
		datasets: datasets,
		logger:   logger,
	}
}

// Datasets returns the configured datasets ordered by rate, then name.
func (o *Orchestrator) Datasets() []config.Dataset {
	out := make([]config.Dataset, len(o.datasets))
	copy(out, o.datasets)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Rate != out[j].Rate {
			return out[i].Rate < out[j].Rate
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// RunDataset aggregates the files of one dataset.
func (o *Orchestrator) RunDataset(ctx context.Context, name string, window *models.Window) (*models.DatasetResult, error) {
	ds, ok := config.FindDataset(o.datasets, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}

	o.logger.Info("Running dataset", "dataset", ds.Name, "rate", ds.Rate, "files", len(ds.Files))
	summary, err := o.calc.MergeAndCalculate(ctx, ds.Files, window)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", ds.Name, err)
	}
	return &models.DatasetResult{Name: ds.Name, Rate: ds.Rate, Summary: summary}, nil
}

// Compare aggregates every dataset concurrently. A dataset that fails is reported in its
// result's Error field; only context cancellation fails the comparison as a whole.
func (o *Orchestrator) Compare(ctx context.Context, window *models.Window) ([]models.DatasetResult, error) {
	datasets := o.Datasets()

	type result struct {
		i   int
		res models.DatasetResult
	}
	resultCh := make(chan result, len(datasets))

	for i, ds := range datasets {
		go func(i int, ds config.Dataset) {
			res := models.DatasetResult{Name: ds.Name, Rate: ds.Rate}
			summary, err := o.calc.MergeAndCalculate(ctx, ds.Files, window)
			if err != nil {
				o.logger.Warn("Dataset produced no summary", "dataset", ds.Name, "error", err)
				res.Error = err.Error()
			} else {
				res.Summary = summary
			}
			resultCh <- result{i: i, res: res}
		}(i, ds)
	}

	results := make([]models.DatasetResult, len(datasets))
	for range datasets {
		r := <-resultCh
		results[r.i] = r.res
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}
