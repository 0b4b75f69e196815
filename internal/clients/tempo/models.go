package tempo

import "encoding/json"

// TraceSummary is one hit of a Tempo search.
type TraceSummary struct {
	TraceID           string `json:"traceID"`
	RootServiceName   string `json:"rootServiceName"`
	RootTraceName     string `json:"rootTraceName"`
	StartTimeUnixNano string `json:"startTimeUnixNano"`
	DurationMs        int64  `json:"durationMs"`
}

type searchResponse struct {
	Traces []TraceSummary `json:"traces"`
}

// traceResponse covers /api/traces (batches) and /api/v2/traces (trace) bodies.
type traceResponse struct {
	Batches json.RawMessage `json:"batches"`
	Trace   json.RawMessage `json:"trace"`
}
