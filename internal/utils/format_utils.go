package utils

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// FormatSince returns how long before now t was, e.g. "3d ago".
func FormatSince(t, now time.Time) string {
	if t.IsZero() {
		return "N/A"
	}

	const (
		day   = 24 * time.Hour
		week  = 7 * day
		month = 30 * day
		year  = 365 * day
	)

	since := now.Sub(t)
	switch {
	case since < 0:
		return "0s ago"
	case since < time.Minute:
		return fmt.Sprintf("%ds ago", int(since.Seconds()))
	case since < time.Hour:
		return fmt.Sprintf("%dm ago", int(since.Minutes()))
	case since < day:
		return fmt.Sprintf("%dh ago", int(since.Hours()))
	case since < week:
		return fmt.Sprintf("%dd ago", int(since/day))
	case since < month:
		return fmt.Sprintf("%dw ago", int(since/week))
	case since < year:
		return fmt.Sprintf("%dmo ago", int(since/month))
	}
	return fmt.Sprintf("%dy ago", int(since/year))
}

// FormatValue prints a sample value with its unit using the shortest exact form.
func FormatValue(v float64, unit string) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if unit == "" {
		return s
	}
	return s + " " + unit
}

// FormatPercent prints a signed percentage with two decimals, e.g. "+12.50%".
func FormatPercent(p float64) string {
	if math.IsInf(p, 0) || math.IsNaN(p) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", p)
}
