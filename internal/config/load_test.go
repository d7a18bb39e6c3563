package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	defer viper.Reset()

	t.Run("Defaults Without Config File", func(t *testing.T) {
		viper.Reset()
		t.Chdir(t.TempDir())

		require.NoError(t, Load(""))
		s, err := Current()
		require.NoError(t, err)

		assert.Equal(t, "file", s.Store.Type)
		assert.Equal(t, "benchmarks/data.js", s.Store.Location())
		assert.Equal(t, 10, s.Detector.Window)
		assert.Equal(t, 2.0, s.Detector.Sensitivity)
		assert.Equal(t, 1e-9, s.Detector.Epsilon)
		assert.Equal(t, ":8080", s.Server.Addr)
		assert.Equal(t, 2112, s.MetricsPort)
		assert.Equal(t, 30*time.Second, s.Watch.Interval)
	})

	t.Run("Config File And Env", func(t *testing.T) {
		viper.Reset()
		dir := t.TempDir()
		path := filepath.Join(dir, "benchtrack.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
repo_url: https://github.com/occlum/occlum
store:
  type: postgres
  dsn: postgres://localhost/bench
detector:
  window: 5
notifications:
  slack:
    enabled: true
    webhook_url: https://hooks.slack.com/services/T000/B000/XXX
`), 0644))
		t.Setenv("BENCHTRACK_DETECTOR_SENSITIVITY", "3")

		require.NoError(t, Load(path))
		s, err := Current()
		require.NoError(t, err)

		assert.Equal(t, "https://github.com/occlum/occlum", s.RepoURL)
		assert.Equal(t, "postgres://localhost/bench", s.Store.Location())
		assert.Equal(t, 5, s.Detector.Window)
		assert.Equal(t, 3.0, s.Detector.Sensitivity)
		assert.True(t, s.Notifications.Slack.Enabled)
		assert.NoError(t, ValidateConfig())
	})

	t.Run("Webhook From Standard Env", func(t *testing.T) {
		viper.Reset()
		t.Chdir(t.TempDir())
		t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")

		require.NoError(t, Load(""))
		s, err := Current()
		require.NoError(t, err)
		assert.True(t, s.Notifications.Discord.Enabled)
		assert.Equal(t, "https://discord.com/api/webhooks/1/abc", s.Notifications.Discord.WebhookURL)
	})

	t.Run("Missing Explicit File", func(t *testing.T) {
		viper.Reset()
		assert.Error(t, Load(filepath.Join(t.TempDir(), "missing.yaml")))
	})
}
