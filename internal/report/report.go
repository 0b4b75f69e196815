// Package report renders aggregation results for people (text, Markdown) and machines (JSON).
// It never modifies the slices and maps it is handed.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"tracebench/internal/models"
	"tracebench/internal/stats"
)

// Format selects how results are rendered.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

const (
	defaultBins  = 30
	defaultWidth = 50
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatMarkdown:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unsupported report format %q", s)
	}
}

// Writer renders results to an io.Writer.
type Writer struct {
	out           io.Writer
	format        Format
	bins          int
	width         int
	iqrMultiplier float64
}

// NewWriter creates a Writer. Non-positive bins or width fall back to 30 and 50.
func NewWriter(out io.Writer, format Format, bins, width int, iqrMultiplier float64) *Writer {
	if bins <= 0 {
		bins = defaultBins
	}
	if width <= 0 {
		width = defaultWidth
	}
	if iqrMultiplier <= 0 {
		iqrMultiplier = stats.DefaultIQRMultiplier
	}
	return &Writer{
		out:           out,
		format:        format,
		bins:          bins,
		width:         width,
		iqrMultiplier: iqrMultiplier,
	}
}

// Summary renders one merge summary.
func (w *Writer) Summary(title string, s models.Summary) error {
	switch w.format {
	case FormatJSON:
		return w.json(s)
	case FormatMarkdown:
		_, err := io.WriteString(w.out, SummaryMarkdown(title, s))
		return err
	}

	fmt.Fprintf(w.out, "%s\n", title)
	fmt.Fprintf(w.out, "  Traces in window:                  %d\n", s.NumTracesInWindow)
	fmt.Fprintf(w.out, "  Average duration:                  %.2f ms\n", s.AverageDurationMs)
	fmt.Fprintf(w.out, "  Traces without outliers:           %d\n", s.NumTracesNoOutliers)
	_, err := fmt.Fprintf(w.out, "  Average duration without outliers: %.2f ms\n", s.AverageDurationNoOutliers)
	return err
}

// Comparison renders the results of several datasets side by side.
func (w *Writer) Comparison(results []models.DatasetResult) error {
	switch w.format {
	case FormatJSON:
		return w.json(results)
	case FormatMarkdown:
		_, err := io.WriteString(w.out, ComparisonMarkdown(results))
		return err
	}

	fmt.Fprintf(w.out, "%-12s %8s %8s %12s %10s %14s\n", "DATASET", "RATE", "TRACES", "AVG MS", "FILTERED", "AVG FILT MS")
	for _, r := range results {
		if r.Summary == nil {
			fmt.Fprintf(w.out, "%-12s %8d  error: %s\n", r.Name, r.Rate, r.Error)
			continue
		}
		s := r.Summary
		fmt.Fprintf(w.out, "%-12s %8d %8d %12.2f %10d %14.2f\n",
			r.Name, r.Rate, s.NumTracesInWindow, s.AverageDurationMs, s.NumTracesNoOutliers, s.AverageDurationNoOutliers)
	}
	return nil
}

// Distribution renders a distribution report with histograms and a boxplot of trace durations.
func (w *Writer) Distribution(d *models.DistributionReport) error {
	switch w.format {
	case FormatJSON:
		return w.json(d)
	case FormatMarkdown:
		_, err := io.WriteString(w.out, DistributionMarkdown(d))
		return err
	}

	fmt.Fprintf(w.out, "Trace durations: %s\n", d.Source)
	fmt.Fprintf(w.out, "  Traces:                            %d\n", d.TraceCount)
	fmt.Fprintf(w.out, "  Trace durations:                   %d\n", len(d.TraceDurations))
	fmt.Fprintf(w.out, "  Trace durations without outliers:  %d\n", len(d.Filtered))
	fmt.Fprintf(w.out, "  Average with outliers:             %.2f ms\n", d.AverageWithOutliers)
	fmt.Fprintf(w.out, "  Average without outliers:          %.2f ms\n\n", d.AverageWithoutOutliers)

	if box, err := stats.BoxOf(d.TraceDurations, w.iqrMultiplier); err == nil {
		fmt.Fprintln(w.out, "Boxplot of trace durations")
		renderBox(w.out, box, w.width)
		fmt.Fprintln(w.out)
	}

	renderHistogram(w.out, "Histogram of trace durations (original)", Histogram(d.TraceDurations, w.bins), w.width)
	fmt.Fprintln(w.out)
	renderHistogram(w.out, "Histogram of trace durations (outliers removed)", Histogram(d.Filtered, w.bins), w.width)

	for _, service := range sortedServices(d.ServiceDurations) {
		fmt.Fprintln(w.out)
		renderHistogram(w.out, fmt.Sprintf("Span durations for %s", service), Histogram(d.ServiceDurations[service], w.bins), w.width)
	}
	return nil
}

func (w *Writer) json(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

func sortedServices(m map[string][]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
