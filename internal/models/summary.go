package models

// Summary is the result of a merge-and-aggregate run.
type Summary struct {
	AverageDurationMs         float64 `json:"average_duration_ms"`
	NumTracesInWindow         int     `json:"num_traces_in_window"`
	AverageDurationNoOutliers float64 `json:"average_duration_no_outliers"`
	NumTracesNoOutliers       int     `json:"num_traces_no_outliers"`
}

// OutlierCount returns how many traces the outlier fence removed.
func (s Summary) OutlierCount() int {
	return s.NumTracesInWindow - s.NumTracesNoOutliers
}

// DistributionReport is the result of analysing a single Jaeger-style trace document.
type DistributionReport struct {
	Source string `json:"source"`

	// TraceCount counts every trace entry in the document, including ones without a computable duration.
	TraceCount int `json:"trace_count"`

	ServiceDurations map[string][]float64 `json:"service_durations_ms"`
	TraceDurations   []float64            `json:"trace_durations_ms"`
	Filtered         []float64            `json:"filtered_durations_ms"`

	LowerBound float64 `json:"lower_bound_ms"`
	UpperBound float64 `json:"upper_bound_ms"`

	AverageWithOutliers    float64 `json:"average_with_outliers_ms"`
	AverageWithoutOutliers float64 `json:"average_without_outliers_ms"`
}

// DatasetResult pairs a named benchmark dataset with its summary.
type DatasetResult struct {
	Name    string   `json:"name"`
	Rate    int      `json:"rate"`
	Summary *Summary `json:"summary,omitempty"`
	Error   string   `json:"error,omitempty"`
}
