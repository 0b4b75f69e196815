package loader

import (
	"encoding/hex"

	"go.opentelemetry.io/collector/pdata/ptrace"

	"tracebench/internal/models"
)

const serviceNameAttr = "service.name"

// decodeOTLP reads one OTLP-JSON export line, as written by a collector file exporter.
func decodeOTLP(line []byte) ([]models.Span, int, error) {
	unmarshaler := &ptrace.JSONUnmarshaler{}
	td, err := unmarshaler.UnmarshalTraces(line)
	if err != nil {
		return nil, 0, err
	}
	spans, dropped := spansFromTraces(td)
	return spans, dropped, nil
}

func spansFromTraces(td ptrace.Traces) ([]models.Span, int) {
	spans := make([]models.Span, 0, td.SpanCount())
	dropped := 0

	rss := td.ResourceSpans()
	for i := 0; i < rss.Len(); i++ {
		rs := rss.At(i)
		service := models.UnknownService
		if v, ok := rs.Resource().Attributes().Get(serviceNameAttr); ok && v.AsString() != "" {
			service = v.AsString()
		}

		sss := rs.ScopeSpans()
		for j := 0; j < sss.Len(); j++ {
			ss := sss.At(j).Spans()
			for k := 0; k < ss.Len(); k++ {
				span := ss.At(k)
				tid := span.TraceID()
				if tid.IsEmpty() || span.StartTimestamp() == 0 || span.EndTimestamp() == 0 {
					dropped++
					continue
				}
				spans = append(spans, models.Span{
					TraceID:     hex.EncodeToString(tid[:]),
					ServiceName: service,
					Start:       int64(span.StartTimestamp()),
					End:         int64(span.EndTimestamp()),
				})
			}
		}
	}
	return spans, dropped
}
