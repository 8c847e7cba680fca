package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ishan121028/RadiologyAI/internal/models"
)

// SlackConfig holds Slack webhook configuration.
type SlackConfig struct {
	WebhookURL string // Slack incoming webhook URL
}

// Validate validates the Slack configuration.
func (c *SlackConfig) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if !strings.HasPrefix(c.WebhookURL, "https://") {
		return fmt.Errorf("webhook URL must use HTTPS")
	}
	return nil
}

// SlackNotifier sends alert notices to Slack via webhook.
type SlackNotifier struct {
	config     SlackConfig
	httpClient *http.Client
}

// NewSlackNotifier creates a new Slack notifier.
func NewSlackNotifier(config SlackConfig) (*SlackNotifier, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid slack config: %w", err)
	}

	return &SlackNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Name returns "slack".
func (s *SlackNotifier) Name() string {
	return "slack"
}

// Send posts the notice to the configured webhook.
func (s *SlackNotifier) Send(ctx context.Context, notice *Notice) error {
	payload := s.buildPayload(notice)

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("slack API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Close is a no-op for Slack notifier.
func (s *SlackNotifier) Close() error {
	return nil
}

// slackMessage represents the Slack webhook payload.
type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

// slackBlock represents a Slack Block Kit block.
type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

// slackText represents text in Slack Block Kit.
type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// buildPayload builds the Slack Block Kit message payload.
func (s *SlackNotifier) buildPayload(notice *Notice) slackMessage {
	alert := notice.Alert
	emoji := levelEmoji(alert.Level)
	timestamp := alert.CreatedAt.Format("2006-01-02 15:04:05 MST")

	header := fmt.Sprintf("%s Radiology Alert: %s", emoji, alert.ID)
	if notice.Escalated {
		header = fmt.Sprintf("%s ESCALATION: %s unacknowledged past deadline", emoji, alert.ID)
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{
				Type:  "plain_text",
				Text:  header,
				Emoji: true,
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Level:*\n%s %s", emoji, alert.Level),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Patient:*\n%s", alert.PatientID),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Created:*\n%s", timestamp),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Severity:*\n%.1f", alert.SeverityScore),
				},
			},
		},
		{
			Type: "section",
			Text: &slackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Findings:*\n%s", alert.FindingsSummary),
			},
		},
	}

	if len(alert.RecommendedActions) > 0 {
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{
				Type: "mrkdwn",
				Text: fmt.Sprintf("*Recommended Actions:*\n• %s", strings.Join(alert.RecommendedActions, "\n• ")),
			},
		})
	}

	if alert.EscalationTarget != "" {
		deadline := alert.EscalationDeadline.Format("15:04:05 MST")
		blocks = append(blocks, slackBlock{
			Type: "context",
			Elements: []slackText{
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("Escalates to %s at %s | Document: `%s`", alert.EscalationTarget, deadline, alert.Document),
				},
			},
		})
	}

	return slackMessage{Blocks: blocks}
}

// levelEmoji returns an emoji for the alert level.
func levelEmoji(level models.AlertLevel) string {
	switch level {
	case models.AlertRed:
		return "\U0001F534" // red circle
	case models.AlertOrange:
		return "\U0001F7E0" // orange circle
	case models.AlertYellow:
		return "\U0001F7E1" // yellow circle
	case models.AlertGreen:
		return "\U0001F7E2" // green circle
	default:
		return "⚪" // white circle
	}
}
