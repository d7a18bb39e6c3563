package notify

import (
	"fmt"
	"strings"

	"benchtrack/internal/regression"
)

// Title is the one-line headline of an alert.
func Title(a Alert) string {
	return fmt.Sprintf("Performance regression in %q at commit %s", a.Report.Suite, shortID(a.Report.CommitID))
}

// Format renders an alert as plain text with one line per regressed metric.
func Format(a Alert) string {
	var b strings.Builder
	b.WriteString(Title(a))
	b.WriteString("\n")
	if a.Report.CommitURL != "" {
		fmt.Fprintf(&b, "%s\n", a.Report.CommitURL)
	} else if a.RepoURL != "" {
		fmt.Fprintf(&b, "%s/commit/%s\n", strings.TrimSuffix(a.RepoURL, "/"), a.Report.CommitID)
	}
	for _, m := range a.Report.Regressions() {
		b.WriteString(MetricLine(m))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// MetricLine describes one regressed metric against its baseline.
func MetricLine(m regression.MetricResult) string {
	unit := ""
	if m.Unit != "" {
		unit = " " + m.Unit
	}
	return fmt.Sprintf("• %s: %g%s (baseline %.4g ± %.2g over %d runs)",
		m.Name, m.Value, unit, m.Baseline.Mean, m.Baseline.StdDev, m.Baseline.Count)
}

func shortID(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}
