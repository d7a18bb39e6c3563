package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// discord embed colour for failures (#E01E5A)
const discordRed = 0xE01E5A

// DiscordNotifier sends notifications to a Discord webhook.
type DiscordNotifier struct {
	WebhookURL string
	Client     *http.Client
}

type discordEmbed struct {
	Title       string    `json:"title"`
	URL         string    `json:"url,omitempty"`
	Description string    `json:"description"`
	Color       int       `json:"color"`
	Timestamp   time.Time `json:"timestamp,omitzero"`
}

type discordPayload struct {
	Content string         `json:"content"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string) *DiscordNotifier {
	return &DiscordNotifier{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *DiscordNotifier) Name() string { return "discord" }

// Notify sends the alert to the configured Discord webhook.
func (n *DiscordNotifier) Notify(ctx context.Context, alert Alert) error {
	if n.WebhookURL == "" {
		return fmt.Errorf("discord webhook URL is not configured")
	}

	var desc bytes.Buffer
	for _, m := range alert.Report.Regressions() {
		desc.WriteString(MetricLine(m))
		desc.WriteString("\n")
	}
	payload := discordPayload{
		Content: Title(alert),
		Embeds: []discordEmbed{{
			Title:       alert.Report.Suite,
			URL:         alert.Report.CommitURL,
			Description: desc.String(),
			Color:       discordRed,
			Timestamp:   alert.Report.RecordedAt,
		}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send discord notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord notification failed with status: %d", resp.StatusCode)
	}

	return nil
}
