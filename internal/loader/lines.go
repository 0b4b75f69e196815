package loader

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"tracebench/internal/models"
)

var maxLineBytes = 64 * 1024 * 1024

var (
	traceIDKeys  = []string{"traceId", "trace_id", "traceID"}
	serviceKeys  = []string{"serviceName", "service_name"}
	startKeys    = []string{"startTimeUnixNano", "start_time", "startTime"}
	endKeys      = []string{"endTimeUnixNano", "end_time", "endTime"}
	durationKeys = []string{"duration", "durationNano"}
)

// LoadLines reads a newline-delimited JSON file. Each line is either a flat span record or an
// OTLP-JSON export line (an object carrying resourceSpans). By default the first undecodable
// line fails the whole file with ErrMalformed.
func (l *Loader) LoadLines(path string) (*Result, error) {
	res := &Result{Path: path}

	f, err := openFile(path)
	if err != nil {
		return res, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var spans []models.Span
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		lineSpans, dropped, err := decodeLine(line)
		if err != nil {
			if l.skipMalformedLines {
				l.logger.Debug("Skipping malformed line", "path", path, "line", lineNo, "error", err)
				res.Dropped++
				continue
			}
			return &Result{Path: path}, fmt.Errorf("%w: %s line %d: %v", ErrMalformed, path, lineNo, err)
		}
		spans = append(spans, lineSpans...)
		res.Dropped += dropped
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return &Result{Path: path}, fmt.Errorf("%w: %s line %d: %v", ErrMalformed, path, lineNo+1, err)
		}
		return &Result{Path: path}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	res.Spans = spans
	return res, nil
}

// decodeLine turns one JSON line into spans. It returns an error only when the line is not a
// JSON object; records that lack usable fields are counted as dropped.
func decodeLine(line []byte) ([]models.Span, int, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(line, &fields); err != nil {
		return nil, 0, err
	}

	if _, ok := fields["resourceSpans"]; ok {
		return decodeOTLP(line)
	}

	span, ok := spanFromFields(fields)
	if !ok {
		return nil, 1, nil
	}
	return []models.Span{span}, 0, nil
}

// spanFromFields is the single place where a loosely typed flat record becomes a span.
func spanFromFields(fields map[string]json.RawMessage) (models.Span, bool) {
	raw, ok := firstPresent(fields, traceIDKeys...)
	if !ok {
		return models.Span{}, false
	}
	traceID, ok := parseID(raw)
	if !ok {
		return models.Span{}, false
	}

	raw, ok = firstPresent(fields, startKeys...)
	if !ok {
		return models.Span{}, false
	}
	start, ok := parseInt64(raw)
	if !ok {
		return models.Span{}, false
	}

	end, ok := int64(0), false
	if raw, present := firstPresent(fields, endKeys...); present {
		end, ok = parseInt64(raw)
	} else if raw, present := firstPresent(fields, durationKeys...); present {
		var d int64
		if d, ok = parseInt64(raw); ok {
			end = start + d
		}
	}
	if !ok {
		return models.Span{}, false
	}

	service := models.UnknownService
	if raw, present := firstPresent(fields, serviceKeys...); present {
		if s, ok := parseString(raw); ok {
			service = s
		}
	}

	return models.Span{
		TraceID:     traceID,
		ServiceName: service,
		Start:       start,
		End:         end,
	}, true
}
