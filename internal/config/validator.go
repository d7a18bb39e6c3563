package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

var storeTypes = map[string]bool{
	"": true, "file": true, "json": true, "datajs": true,
	"sqlite": true, "sqlite3": true,
	"postgres": true, "postgresql": true,
	"badger": true, "memory": true,
}

// ValidateConfig validates configuration values and returns an error if any are invalid.
// This function should be called after viper has loaded the configuration.
func ValidateConfig() error {
	var errors []string

	storeType := strings.ToLower(viper.GetString("store.type"))
	if !storeTypes[storeType] {
		errors = append(errors, fmt.Sprintf("store.type must be one of file, sqlite, postgres, badger, memory, got: %q", storeType))
	}
	if (storeType == "postgres" || storeType == "postgresql") && viper.GetString("store.dsn") == "" {
		errors = append(errors, "store.dsn is required for the postgres store")
	}

	if w := viper.GetInt("detector.window"); w < 2 {
		errors = append(errors, fmt.Sprintf("detector.window must be at least 2, got: %d", w))
	}
	if k := viper.GetFloat64("detector.sensitivity"); k <= 0 {
		errors = append(errors, fmt.Sprintf("detector.sensitivity must be positive, got: %v", k))
	}
	if eps := viper.GetFloat64("detector.epsilon"); eps < 0 {
		errors = append(errors, fmt.Sprintf("detector.epsilon must not be negative, got: %v", eps))
	}
	if mb := viper.GetInt("detector.min_baseline"); mb < 2 {
		errors = append(errors, fmt.Sprintf("detector.min_baseline must be at least 2, got: %d", mb))
	} else if mb > viper.GetInt("detector.window") {
		errors = append(errors, fmt.Sprintf("detector.min_baseline (%d) must not exceed detector.window (%d)", mb, viper.GetInt("detector.window")))
	}
	if r := viper.GetFloat64("alert_ratio"); r <= 1 {
		errors = append(errors, fmt.Sprintf("alert_ratio must be greater than 1, got: %v", r))
	}

	// Validate metrics port (must be in valid range)
	if viper.IsSet("metrics_port") {
		port := viper.GetInt("metrics_port")
		if port < 0 || port > 65535 {
			errors = append(errors, fmt.Sprintf("metrics_port must be between 0 and 65535, got: %d", port))
		}
	}

	if repo := viper.GetString("repo_url"); repo != "" {
		if err := validateURL(repo); err != nil {
			errors = append(errors, fmt.Sprintf("repo_url is invalid: %v", err))
		}
	}

	for _, name := range []string{"slack", "discord"} {
		prefix := "notifications." + name
		if !viper.GetBool(prefix + ".enabled") {
			continue
		}
		hook := viper.GetString(prefix + ".webhook_url")
		if hook == "" {
			errors = append(errors, fmt.Sprintf("%s.webhook_url is required when %s notifications are enabled", prefix, name))
		} else if err := validateURL(hook); err != nil {
			errors = append(errors, fmt.Sprintf("%s.webhook_url is invalid: %v", prefix, err))
		}
	}

	if viper.GetBool("influx.enabled") {
		if err := validateURL(viper.GetString("influx.url")); err != nil {
			errors = append(errors, fmt.Sprintf("influx.url is invalid: %v", err))
		}
		for _, key := range []string{"influx.org", "influx.bucket"} {
			if viper.GetString(key) == "" {
				errors = append(errors, key+" is required when influx is enabled")
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host is empty")
	}
	return nil
}
