// Package models defines the shared core data structures used throughout tracebench.
package models

import (
	"math"
	"time"
)

// UnknownService is the service name assigned to spans that do not carry one.
const UnknownService = "unknown"

// Span is the canonical span record every input shape is normalized into at load time.
// Start and End are nanoseconds relative to the epoch used by the producing system.
type Span struct {
	TraceID     string `json:"trace_id"`
	ServiceName string `json:"service_name"`
	Start       int64  `json:"start_time"`
	End         int64  `json:"end_time"`
}

// DurationNs returns the span's own duration in nanoseconds.
func (s Span) DurationNs() int64 {
	return s.End - s.Start
}

// DurationMs returns the span's own duration in milliseconds.
func (s Span) DurationMs() float64 {
	return NanosToMillis(s.DurationNs())
}

// Window restricts an aggregation to traces starting within Length of the earliest trace.
type Window struct {
	Length time.Duration
}

// WindowMinutes builds a Window from a length in minutes. Lengths past the largest
// time.Duration saturate to it.
func WindowMinutes(minutes float64) *Window {
	ns := minutes * 60 * 1e9
	if ns >= math.MaxInt64 {
		return &Window{Length: math.MaxInt64}
	}
	return &Window{Length: time.Duration(ns)}
}

// Nanos returns the window length in nanoseconds.
func (w *Window) Nanos() int64 {
	return int64(w.Length)
}

// NanosToMillis converts a nanosecond count to fractional milliseconds.
func NanosToMillis(ns int64) float64 {
	return float64(ns) / 1e6
}
