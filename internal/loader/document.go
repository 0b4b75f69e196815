package loader

import (
	"encoding/json"
	"fmt"
	"io"

	"tracebench/internal/models"
)

// Jaeger reports startTime and duration in microseconds.
const microsToNanos = 1000

type jaegerDocument struct {
	Data []jaegerTrace `json:"data"`
}

type jaegerTrace struct {
	TraceID   string                   `json:"traceID"`
	Spans     []jaegerSpan             `json:"spans"`
	Processes map[string]jaegerProcess `json:"processes"`
}

type jaegerSpan struct {
	TraceID   string          `json:"traceID"`
	ProcessID string          `json:"processID"`
	Process   *jaegerProcess  `json:"process"`
	StartTime json.RawMessage `json:"startTime"`
	Duration  json.RawMessage `json:"duration"`
}

type jaegerProcess struct {
	ServiceName string `json:"serviceName"`
}

// LoadDocument reads a single Jaeger-style JSON document. Spans without a start time or a
// duration are dropped from Spans; trace entries are still counted in Result.TraceEntries.
// Spans with only a duration are kept in ServiceSpans.
func (l *Loader) LoadDocument(path string) (*Result, error) {
	res := &Result{Path: path}

	f, err := openFile(path)
	if err != nil {
		return res, err
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return res, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var doc jaegerDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return res, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}

	res.TraceEntries = len(doc.Data)
	for i, tr := range doc.Data {
		for _, sp := range tr.Spans {
			duration, hasDuration := parseInt64(sp.Duration)
			if !hasDuration {
				res.Dropped++
				continue
			}

			span := models.Span{
				TraceID:     jaegerTraceID(i, tr, sp),
				ServiceName: jaegerService(tr, sp),
				End:         duration * microsToNanos,
			}
			start, hasStart := parseInt64(sp.StartTime)
			if hasStart {
				span.Start = start * microsToNanos
				span.End = (start + duration) * microsToNanos
			}
			res.ServiceSpans = append(res.ServiceSpans, span)

			if !hasStart {
				res.Dropped++
				continue
			}
			res.Spans = append(res.Spans, span)
		}
	}
	return res, nil
}

func jaegerTraceID(index int, tr jaegerTrace, sp jaegerSpan) string {
	switch {
	case tr.TraceID != "":
		return tr.TraceID
	case sp.TraceID != "":
		return sp.TraceID
	}
	return fmt.Sprintf("trace-%d", index)
}

func jaegerService(tr jaegerTrace, sp jaegerSpan) string {
	switch {
	case sp.Process != nil && sp.Process.ServiceName != "":
		return sp.Process.ServiceName
	case tr.Processes[sp.ProcessID].ServiceName != "":
		return tr.Processes[sp.ProcessID].ServiceName
	}
	return models.UnknownService
}
