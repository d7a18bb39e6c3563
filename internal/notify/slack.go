package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/slack-go/slack"
)

// SlackNotifier sends notifications to Slack via an incoming webhook.
type SlackNotifier struct {
	WebhookURL string
	Channel    string
	Client     *http.Client
}

// NewSlackNotifier creates a new SlackNotifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		WebhookURL: webhookURL,
		Channel:    channel,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

// Notify posts the alert as an attachment with one field per regressed metric.
func (s *SlackNotifier) Notify(ctx context.Context, alert Alert) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL is not configured")
	}

	fields := make([]slack.AttachmentField, 0, len(alert.Report.Metrics))
	for _, m := range alert.Report.Regressions() {
		fields = append(fields, slack.AttachmentField{Title: m.Name, Value: MetricLine(m)})
	}
	msg := &slack.WebhookMessage{
		Channel: s.Channel,
		Text:    Title(alert),
		Attachments: []slack.Attachment{{
			Color:     "danger",
			Title:     alert.Report.Suite,
			TitleLink: alert.Report.CommitURL,
			Fields:    fields,
			Footer:    alert.RepoURL,
			Ts:        unixTS(alert.Report.RecordedAt),
		}},
	}

	// Use the configured client, fallback to DefaultClient (for structs created manually)
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.WebhookURL, client, msg); err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	return nil
}

func unixTS(t time.Time) json.Number {
	if t.IsZero() {
		return ""
	}
	return json.Number(strconv.FormatInt(t.Unix(), 10))
}
