// Package utils holds small parsing and formatting helpers shared by the CLI
// and the HTTP API.
package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Supported layout for absolute time parsing
const AbsoluteTimeLayout = "2006-01-02"

// RelativeDurationRegex matches patterns like "7d", "2w", "24h", "60m", "30s"
var RelativeDurationRegex = regexp.MustCompile(`^(\d+)([hmsdw])$`)

var epochMillisRegex = regexp.MustCompile(`^\d{12,}$`)

// ParseDuration parses a string like "7d" into a time.Duration.
// It supports weeks (w), days (d), hours (h), minutes (m) and seconds (s).
func ParseDuration(durationStr string) (time.Duration, error) {
	matches := RelativeDurationRegex.FindStringSubmatch(durationStr)
	if len(matches) != 3 {
		return 0, fmt.Errorf("invalid duration format: %q. Expected format like '7d', '24h', '60m'", durationStr)
	}

	value, _ := strconv.Atoi(matches[1])
	unit := matches[2]

	switch unit {
	case "w":
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "m":
		return time.Duration(value) * time.Minute, nil
	case "s":
		return time.Duration(value) * time.Second, nil
	default:
		return 0, fmt.Errorf("unsupported time unit: %s", unit)
	}
}

// ParseTime parses a relative duration before now (e.g. "7d"), a date
// ("YYYY-MM-DD"), an RFC 3339 timestamp or epoch milliseconds.
func ParseTime(timeStr string, now time.Time) (time.Time, error) {
	timeStr = strings.TrimSpace(timeStr)
	if timeStr == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	if duration, err := ParseDuration(timeStr); err == nil {
		return now.Add(-duration), nil
	}
	if epochMillisRegex.MatchString(timeStr) {
		ms, err := strconv.ParseInt(timeStr, 10, 64)
		if err == nil {
			return time.UnixMilli(ms).UTC(), nil
		}
	}
	if t, err := time.Parse(AbsoluteTimeLayout, timeStr); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, timeStr); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid time format: %q. Use '7d'/'24h', 'YYYY-MM-DD', RFC 3339 or epoch milliseconds", timeStr)
}
