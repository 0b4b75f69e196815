package models

// Trace is the set of spans sharing a trace id, reduced to its wall-clock extent.
type Trace struct {
	TraceID    string  `json:"trace_id"`
	Start      int64   `json:"start_time"`
	End        int64   `json:"end_time"`
	DurationNs int64   `json:"duration_ns"`
	DurationMs float64 `json:"duration_ms"`
	SpanCount  int     `json:"span_count"`
}

// Durations extracts the millisecond durations of traces in order.
func Durations(traces []Trace) []float64 {
	out := make([]float64, len(traces))
	for i, t := range traces {
		out[i] = t.DurationMs
	}
	return out
}
