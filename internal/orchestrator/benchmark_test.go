package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracebench/internal/aggregator"
	"tracebench/internal/config"
	"tracebench/internal/models"
)

type fakeCalculator struct {
	mu      sync.Mutex
	calls   [][]string
	windows []*models.Window
}

func (f *fakeCalculator) MergeAndCalculate(_ context.Context, paths []string, window *models.Window) (*models.Summary, error) {
	f.mu.Lock()
	f.calls = append(f.calls, paths)
	f.windows = append(f.windows, window)
	f.mu.Unlock()

	if len(paths) == 0 {
		return nil, aggregator.ErrNoData
	}
	return &models.Summary{NumTracesInWindow: len(paths), AverageDurationMs: float64(10 * len(paths))}, nil
}

func testDatasets() []config.Dataset {
	return []config.Dataset{
		{Name: "50", Rate: 50, Files: []string{"a", "b", "c"}},
		{Name: "1", Rate: 1, Files: []string{"a"}},
		{Name: "empty", Rate: 10},
	}
}

func TestDatasetsOrderedByRate(t *testing.T) {
	o := New(&fakeCalculator{}, testDatasets(), nil)

	var names []string
	for _, d := range o.Datasets() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"1", "empty", "50"}, names)
}

func TestRunDataset(t *testing.T) {
	calc := &fakeCalculator{}
	o := New(calc, testDatasets(), nil)

	window := models.WindowMinutes(30)
	res, err := o.RunDataset(context.Background(), "50", window)
	require.NoError(t, err)
	assert.Equal(t, "50", res.Name)
	assert.Equal(t, 50, res.Rate)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 3, res.Summary.NumTracesInWindow)

	require.Len(t, calc.calls, 1)
	assert.Equal(t, []string{"a", "b", "c"}, calc.calls[0])
	assert.Same(t, window, calc.windows[0])
}

func TestRunDatasetUnknown(t *testing.T) {
	o := New(&fakeCalculator{}, testDatasets(), nil)

	_, err := o.RunDataset(context.Background(), "1000", nil)
	assert.ErrorIs(t, err, ErrUnknownDataset)
}

func TestRunDatasetNoData(t *testing.T) {
	o := New(&fakeCalculator{}, testDatasets(), nil)

	_, err := o.RunDataset(context.Background(), "empty", nil)
	assert.ErrorIs(t, err, aggregator.ErrNoData)
}

func TestCompare(t *testing.T) {
	o := New(&fakeCalculator{}, testDatasets(), nil)

	results, err := o.Compare(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "1", results[0].Name)
	assert.Equal(t, 10.0, results[0].Summary.AverageDurationMs)

	assert.Equal(t, "empty", results[1].Name)
	assert.Nil(t, results[1].Summary)
	assert.Contains(t, results[1].Error, "no data")

	assert.Equal(t, "50", results[2].Name)
	assert.Equal(t, 30.0, results[2].Summary.AverageDurationMs)
}

func TestCompareCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(&fakeCalculator{}, testDatasets(), nil).Compare(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompareNoDatasets(t *testing.T) {
	results, err := New(&fakeCalculator{}, nil, nil).Compare(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}
