// Package output posts aggregation results to a Slack incoming webhook.
package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tracebench/internal/models"
)

// SlackSender posts Block Kit messages to a Slack webhook.
type SlackSender struct {
	webhookURL string
	client     *http.Client
}

// NewSlackSender initializes a SlackSender with a configured webhook URL and HTTP client.
func NewSlackSender(webhookURL string) *SlackSender {
	return &SlackSender{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SlackBlock represents a Slack message block
type SlackBlock struct {
	Type   string       `json:"type"`
	Text   *SlackText   `json:"text,omitempty"`
	Fields []SlackField `json:"fields,omitempty"`
}

// SlackText represents text in Slack
type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SlackField represents a field in Slack
type SlackField struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SlackMessage represents a Slack message
type SlackMessage struct {
	Text   string       `json:"text"`
	Blocks []SlackBlock `json:"blocks"`
}

// Send posts message to the webhook.
func (s *SlackSender) Send(ctx context.Context, message SlackMessage) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status: %d", resp.StatusCode)
	}

	return nil
}

func header(text string) SlackBlock {
	return SlackBlock{Type: "header", Text: &SlackText{Type: "plain_text", Text: text}}
}

func field(label, value string) SlackField {
	return SlackField{Type: "mrkdwn", Text: fmt.Sprintf("*%s:*\n%s", label, value)}
}

// SummaryMessage builds the message for one merge summary.
func SummaryMessage(title string, s models.Summary) SlackMessage {
	return SlackMessage{
		Text: fmt.Sprintf("%s: %.2f ms over %d traces", title, s.AverageDurationMs, s.NumTracesInWindow),
		Blocks: []SlackBlock{
			header(title),
			{
				Type: "section",
				Fields: []SlackField{
					field("Average duration", fmt.Sprintf("%.2f ms", s.AverageDurationMs)),
					field("Traces in window", fmt.Sprintf("%d", s.NumTracesInWindow)),
					field("Average without outliers", fmt.Sprintf("%.2f ms", s.AverageDurationNoOutliers)),
					field("Traces without outliers", fmt.Sprintf("%d", s.NumTracesNoOutliers)),
				},
			},
		},
	}
}

// ComparisonMessage builds one section per dataset.
func ComparisonMessage(results []models.DatasetResult) SlackMessage {
	blocks := []SlackBlock{header("Trace durations by load")}
	for _, r := range results {
		text := fmt.Sprintf("*%s* (%d msg/s)\n", r.Name, r.Rate)
		if r.Summary == nil {
			text += fmt.Sprintf("_no summary: %s_", r.Error)
		} else {
			text += fmt.Sprintf("%.2f ms over %d traces, %.2f ms over %d without outliers",
				r.Summary.AverageDurationMs, r.Summary.NumTracesInWindow,
				r.Summary.AverageDurationNoOutliers, r.Summary.NumTracesNoOutliers)
		}
		blocks = append(blocks, SlackBlock{Type: "section", Text: &SlackText{Type: "mrkdwn", Text: text}})
	}
	return SlackMessage{
		Text:   fmt.Sprintf("Trace durations for %d datasets", len(results)),
		Blocks: blocks,
	}
}

// DistributionMessage builds the message for a distribution report.
func DistributionMessage(d *models.DistributionReport) SlackMessage {
	return SlackMessage{
		Text: fmt.Sprintf("Trace durations of %s", d.Source),
		Blocks: []SlackBlock{
			header("Trace duration distribution"),
			{
				Type: "section",
				Text: &SlackText{Type: "mrkdwn", Text: fmt.Sprintf("`%s`", d.Source)},
				Fields: []SlackField{
					field("Traces", fmt.Sprintf("%d", d.TraceCount)),
					field("Outlier fence", fmt.Sprintf("%.2f .. %.2f ms", d.LowerBound, d.UpperBound)),
					field("Average", fmt.Sprintf("%.2f ms", d.AverageWithOutliers)),
					field("Average without outliers", fmt.Sprintf("%.2f ms", d.AverageWithoutOutliers)),
				},
			},
		},
	}
}
