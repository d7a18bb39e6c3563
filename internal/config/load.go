// Package config loads benchtrack settings from a config file, .env and
// BENCHTRACK_* environment variables through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. BENCHTRACK_STORE_TYPE.
const EnvPrefix = "BENCHTRACK"

// Settings is the typed view of the loaded configuration.
type Settings struct {
	RepoURL       string        `mapstructure:"repo_url"`
	Store         Store         `mapstructure:"store"`
	Detector      Detector      `mapstructure:"detector"`
	AlertRatio    float64       `mapstructure:"alert_ratio"`
	Server        Server        `mapstructure:"server"`
	MetricsPort   int           `mapstructure:"metrics_port"`
	Verbose       bool          `mapstructure:"verbose"`
	LogFile       string        `mapstructure:"log_file"`
	Watch         Watch         `mapstructure:"watch"`
	Notifications Notifications `mapstructure:"notifications"`
	Influx        Influx        `mapstructure:"influx"`
}

type Store struct {
	Type string `mapstructure:"type"`
	Path string `mapstructure:"path"`
	DSN  string `mapstructure:"dsn"`
}

// Location is the path or DSN the store type needs.
func (s Store) Location() string {
	switch strings.ToLower(s.Type) {
	case "postgres", "postgresql":
		return s.DSN
	default:
		return s.Path
	}
}

type Detector struct {
	Window      int     `mapstructure:"window"`
	Sensitivity float64 `mapstructure:"sensitivity"`
	Epsilon     float64 `mapstructure:"epsilon"`
	MinBaseline int     `mapstructure:"min_baseline"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
}

type Watch struct {
	Dir      string        `mapstructure:"dir"`
	Interval time.Duration `mapstructure:"interval"`
}

type Notifications struct {
	Slack   Webhook `mapstructure:"slack"`
	Discord Webhook `mapstructure:"discord"`
}

type Webhook struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

type Influx struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Token   string `mapstructure:"token"`
	Org     string `mapstructure:"org"`
	Bucket  string `mapstructure:"bucket"`
}

// SetDefaults registers every default value.
func SetDefaults() {
	viper.SetDefault("repo_url", "")
	viper.SetDefault("store.type", "file")
	viper.SetDefault("store.path", "benchmarks/data.js")
	viper.SetDefault("store.dsn", "")
	viper.SetDefault("detector.window", 10)
	viper.SetDefault("detector.sensitivity", 2.0)
	viper.SetDefault("detector.epsilon", 1e-9)
	viper.SetDefault("detector.min_baseline", 2)
	viper.SetDefault("alert_ratio", 2.0)
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("metrics_port", 2112)
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_file", "")
	viper.SetDefault("watch.dir", "incoming")
	viper.SetDefault("watch.interval", 30*time.Second)

	// Notification Defaults
	viper.SetDefault("notifications.slack.enabled", os.Getenv("SLACK_WEBHOOK_URL") != "")
	viper.SetDefault("notifications.slack.webhook_url", os.Getenv("SLACK_WEBHOOK_URL"))
	viper.SetDefault("notifications.slack.channel", "")
	viper.SetDefault("notifications.discord.enabled", os.Getenv("DISCORD_WEBHOOK_URL") != "")
	viper.SetDefault("notifications.discord.webhook_url", os.Getenv("DISCORD_WEBHOOK_URL"))

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.url", "http://localhost:8086")
	viper.SetDefault("influx.token", os.Getenv("INFLUX_TOKEN"))
	viper.SetDefault("influx.org", "")
	viper.SetDefault("influx.bucket", "benchmarks")
}

// Load initializes the configuration from file and environment variables.
// A missing default config file is not an error; a missing explicit one is.
func Load(cfgFile string) error {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("benchtrack")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	return nil
}

// Current decodes the loaded configuration.
func Current() (Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	return s, nil
}
