package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"

	"benchtrack/internal/history"
)

// Manager fans an alert out to every configured notifier. It is a history
// observer: only ingestions whose report raised an alert are sent.
type Manager struct {
	notifiers []Notifier
	repoURL   string
	timeout   time.Duration
	logger    *slog.Logger
}

// NewManager creates a manager for the given notifiers.
func NewManager(repoURL string, logger *slog.Logger, notifiers ...Notifier) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{notifiers: notifiers, repoURL: repoURL, timeout: 15 * time.Second, logger: logger}
}

// NewManagerFromConfig builds notifiers from the notifications.* settings.
func NewManagerFromConfig(repoURL string, logger *slog.Logger) *Manager {
	var ns []Notifier
	if viper.GetBool("notifications.slack.enabled") {
		if url := viper.GetString("notifications.slack.webhook_url"); url != "" {
			ns = append(ns, NewSlackNotifier(url, viper.GetString("notifications.slack.channel")))
		} else if logger != nil {
			logger.Warn("slack notifications enabled without a webhook URL, skipping")
		}
	}
	if viper.GetBool("notifications.discord.enabled") {
		if url := viper.GetString("notifications.discord.webhook_url"); url != "" {
			ns = append(ns, NewDiscordNotifier(url))
		} else if logger != nil {
			logger.Warn("discord notifications enabled without a webhook URL, skipping")
		}
	}
	return NewManager(repoURL, logger, ns...)
}

// Enabled reports whether any notifier is configured.
func (m *Manager) Enabled() bool { return len(m.notifiers) > 0 }

// Send delivers the alert to every notifier, returning all failures joined.
func (m *Manager) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		m.logger.Info("regression alert sent", "notifier", n.Name(), "suite", alert.Report.Suite, "commit_id", alert.Report.CommitID)
	}
	return errors.Join(errs...)
}

// Observe implements history.Observer. The store's repository URL wins over
// the one the manager was built with.
func (m *Manager) Observe(ctx context.Context, res history.IngestResult) {
	if !res.Report.Alert || !m.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	repoURL := res.RepoURL
	if repoURL == "" {
		repoURL = m.repoURL
	}
	if err := m.Send(ctx, Alert{RepoURL: repoURL, Report: res.Report}); err != nil {
		m.logger.Error("failed to send regression alert", "suite", res.Suite, "error", err)
	}
}
