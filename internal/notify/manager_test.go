package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchtrack/internal/history"
)

type mockNotifier struct {
	name string
	err  error

	mu     sync.Mutex
	alerts []Alert
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Notify(ctx context.Context, alert Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return m.err
}

func TestManager_Observe(t *testing.T) {
	slackMock := &mockNotifier{name: "slack"}
	discordMock := &mockNotifier{name: "discord", err: errors.New("rate limited")}
	m := NewManager("https://github.com/occlum/occlum", nil, slackMock, discordMock)

	t.Run("Alert Is Sent To Every Notifier", func(t *testing.T) {
		m.Observe(context.Background(), history.IngestResult{Suite: "Sysbench Benchmark", Report: testAlert().Report})
		assert.Len(t, slackMock.alerts, 1)
		assert.Len(t, discordMock.alerts, 1, "a failing notifier is still called")
		assert.Equal(t, "https://github.com/occlum/occlum", slackMock.alerts[0].RepoURL)
	})

	t.Run("No Alert Sends Nothing", func(t *testing.T) {
		report := testAlert().Report
		report.Alert = false
		m.Observe(context.Background(), history.IngestResult{Report: report})
		assert.Len(t, slackMock.alerts, 1)
	})

	t.Run("Store Repo URL Wins", func(t *testing.T) {
		m.Observe(context.Background(), history.IngestResult{
			Suite:   "Sysbench Benchmark",
			Report:  testAlert().Report,
			RepoURL: "https://github.com/example/imported",
		})
		require.Len(t, slackMock.alerts, 2)
		assert.Equal(t, "https://github.com/example/imported", slackMock.alerts[1].RepoURL)
	})

	t.Run("Send Joins Errors", func(t *testing.T) {
		err := m.Send(context.Background(), testAlert())
		assert.ErrorContains(t, err, "discord: rate limited")
	})
}

func TestNewManagerFromConfig(t *testing.T) {
	defer viper.Reset()

	tests := []struct {
		name  string
		setup func()
		want  []string
	}{
		{"Nothing Enabled", func() {}, nil},
		{"Slack", func() {
			viper.Set("notifications.slack.enabled", true)
			viper.Set("notifications.slack.webhook_url", "https://hooks.slack.com/services/T/B/X")
		}, []string{"slack"}},
		{"Both", func() {
			viper.Set("notifications.slack.enabled", true)
			viper.Set("notifications.slack.webhook_url", "https://hooks.slack.com/services/T/B/X")
			viper.Set("notifications.discord.enabled", true)
			viper.Set("notifications.discord.webhook_url", "https://discord.com/api/webhooks/1/abc")
		}, []string{"slack", "discord"}},
		{"Enabled Without URL", func() {
			viper.Set("notifications.discord.enabled", true)
		}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			tt.setup()
			m := NewManagerFromConfig("", nil)

			var names []string
			for _, n := range m.notifiers {
				names = append(names, n.Name())
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, len(tt.want) > 0, m.Enabled())
		})
	}
}
