// Package tempo exports traces from a Grafana Tempo backend into OTLP JSON line files
// that the loader reads like any other trace file.
package tempo

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/collector/pdata/ptrace"
)

// Client implements HTTP interaction with the Tempo API to search and fetch traces.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Tempo client
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// doRequest performs the HTTP request to Tempo via HTTP API
func (c *Client) doRequest(ctx context.Context, apiPath string, params url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	u.Path = apiPath
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tempo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code from tempo: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

// Search runs a TraceQL query over [start, end] and returns at most limit trace overviews.
// A non-positive limit leaves the server default in place.
func (c *Client) Search(ctx context.Context, query string, start, end time.Time, limit int) ([]TraceSummary, error) {
	params := url.Values{
		"q":     []string{query},
		"start": []string{strconv.FormatInt(start.Unix(), 10)},
		"end":   []string{strconv.FormatInt(end.Unix(), 10)},
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	resp, err := c.doRequest(ctx, "/api/search", params)
	if err != nil {
		c.logger.Error("Failed to search traces", "query", query, "error", err)
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}
	return result.Traces, nil
}

// GetTraceByID fetches a single complete trace by its ID.
func (c *Client) GetTraceByID(ctx context.Context, traceID string) (ptrace.Traces, error) {
	resp, err := c.doRequest(ctx, "/api/traces/"+url.PathEscape(traceID), nil)
	if err != nil {
		c.logger.Error("Failed to fetch trace by ID", "traceID", traceID, "error", err)
		return ptrace.Traces{}, err
	}

	td, err := decodeTrace(resp)
	if err != nil {
		return ptrace.Traces{}, fmt.Errorf("failed to parse trace %s: %w", traceID, err)
	}
	return td, nil
}

// decodeTrace accepts both the "batches" body of /api/traces and a plain OTLP document.
func decodeTrace(body []byte) (ptrace.Traces, error) {
	var resp traceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ptrace.Traces{}, err
	}

	otlp := body
	switch {
	case resp.Trace != nil:
		otlp = resp.Trace
	case resp.Batches != nil:
		wrapped, err := json.Marshal(map[string]json.RawMessage{"resourceSpans": resp.Batches})
		if err != nil {
			return ptrace.Traces{}, err
		}
		otlp = wrapped
	}

	unmarshaler := &ptrace.JSONUnmarshaler{}
	return unmarshaler.UnmarshalTraces(otlp)
}

// Export searches for traces and writes each one as a single OTLP JSON line to w.
// Traces that cannot be fetched are logged and skipped. It returns the number of lines written.
func (c *Client) Export(ctx context.Context, w io.Writer, query string, start, end time.Time, limit int) (int, error) {
	found, err := c.Search(ctx, query, start, end, limit)
	if err != nil {
		return 0, err
	}
	c.logger.Info("Found traces", "query", query, "traces", len(found))

	bw := bufio.NewWriter(w)
	marshaler := &ptrace.JSONMarshaler{}
	written := 0
	for _, t := range found {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		td, err := c.GetTraceByID(ctx, t.TraceID)
		if err != nil {
			c.logger.Warn("Skipping trace", "traceID", t.TraceID, "error", err)
			continue
		}
		if td.SpanCount() == 0 {
			continue
		}

		line, err := marshaler.MarshalTraces(td)
		if err != nil {
			return written, fmt.Errorf("failed to encode trace %s: %w", t.TraceID, err)
		}
		bw.Write(line)
		if err := bw.WriteByte('\n'); err != nil {
			return written, fmt.Errorf("failed to write trace %s: %w", t.TraceID, err)
		}
		written++
	}

	if err := bw.Flush(); err != nil {
		return written, fmt.Errorf("failed to write traces: %w", err)
	}
	return written, nil
}
