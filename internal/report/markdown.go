package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"tracebench/internal/models"
)

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// SummaryMarkdown renders a merge summary as a Markdown section.
func SummaryMarkdown(title string, s models.Summary) string {
	md := fmt.Sprintf("## %s\n\n", title)
	md += "| Statistic | Value |\n|---|---|\n"
	md += fmt.Sprintf("| Traces in window | %d |\n", s.NumTracesInWindow)
	md += fmt.Sprintf("| Average duration (ms) | %.2f |\n", s.AverageDurationMs)
	md += fmt.Sprintf("| Traces without outliers | %d |\n", s.NumTracesNoOutliers)
	md += fmt.Sprintf("| Average duration without outliers (ms) | %.2f |\n", s.AverageDurationNoOutliers)
	return md
}

// ComparisonMarkdown renders dataset results as a Markdown table.
func ComparisonMarkdown(results []models.DatasetResult) string {
	md := "## Trace durations by load\n\n"
	md += "| Dataset | Rate (msg/s) | Traces | Avg (ms) | Traces w/o outliers | Avg w/o outliers (ms) |\n"
	md += "|---|---|---|---|---|---|\n"
	for _, r := range results {
		if r.Summary == nil {
			md += fmt.Sprintf("| %s | %d | - | - | - | %s |\n", r.Name, r.Rate, r.Error)
			continue
		}
		s := r.Summary
		md += fmt.Sprintf("| %s | %d | %d | %.2f | %d | %.2f |\n",
			r.Name, r.Rate, s.NumTracesInWindow, s.AverageDurationMs, s.NumTracesNoOutliers, s.AverageDurationNoOutliers)
	}
	return md
}

// DistributionMarkdown renders the numbers of a distribution report as Markdown.
func DistributionMarkdown(d *models.DistributionReport) string {
	md := fmt.Sprintf("## Trace durations: %s\n\n", d.Source)
	md += fmt.Sprintf("- Traces: %d\n", d.TraceCount)
	md += fmt.Sprintf("- Trace durations: %d\n", len(d.TraceDurations))
	md += fmt.Sprintf("- Trace durations without outliers: %d\n", len(d.Filtered))
	md += fmt.Sprintf("- Outlier fence: %.2f ms .. %.2f ms\n", d.LowerBound, d.UpperBound)
	md += fmt.Sprintf("- Average with outliers: %.2f ms\n", d.AverageWithOutliers)
	md += fmt.Sprintf("- Average without outliers: %.2f ms\n\n", d.AverageWithoutOutliers)

	md += "### Span durations by service\n\n| Service | Spans |\n|---|---|\n"
	for _, service := range sortedServices(d.ServiceDurations) {
		md += fmt.Sprintf("| %s | %d |\n", service, len(d.ServiceDurations[service]))
	}
	return md
}

// WriteMarkdownFile writes body under dir as <date>-<name>.md and returns the file path.
func WriteMarkdownFile(dir, name, body string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	slug := strings.Trim(unsafeName.ReplaceAllString(name, "-"), "-")
	if slug == "" {
		slug = "report"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.md", now.Format("2006-01-02-150405"), slug))

	md := fmt.Sprintf("# tracebench report: %s\n", name)
	md += fmt.Sprintf("**Date:** %s\n\n", now.Format("2006-01-02 15:04:05"))
	md += body

	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("failed to write markdown report: %w", err)
	}
	return path, nil
}
