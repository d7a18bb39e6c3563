// Package regression classifies a benchmark entry against the recent history of
// its suite. Detection is read-only: it never mutates the series it inspects.
package regression

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"benchtrack/internal/benchmark"
)

// Outcome is the classification of one metric.
type Outcome int

const (
	// InsufficientBaseline means fewer than MinBaseline prior values exist.
	InsufficientBaseline Outcome = iota
	// Stable means the value is within k standard deviations of the baseline.
	Stable
	// Improved means the value is better than the baseline by more than k standard deviations.
	Improved
	// Regressed means the value is worse than the baseline by more than k standard deviations.
	Regressed
)

// String returns the string representation.
func (o Outcome) String() string {
	switch o {
	case InsufficientBaseline:
		return "insufficient_baseline"
	case Stable:
		return "stable"
	case Improved:
		return "improved"
	case Regressed:
		return "regressed"
	default:
		return "unknown"
	}
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, c := range []Outcome{InsufficientBaseline, Stable, Improved, Regressed} {
		if c.String() == s {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", s)
}

// Config configures regression detection.
type Config struct {
	// Window is how many prior entries carrying the metric form the baseline.
	Window int

	// Sensitivity is k: how many standard deviations worse counts as a regression.
	Sensitivity float64

	// Epsilon is the relative tolerance used when the baseline has zero spread.
	Epsilon float64

	// MinBaseline is the fewest prior values needed to classify. Never below 2,
	// since a sample standard deviation needs two points.
	MinBaseline int
}

// DefaultConfig returns the detector defaults: 10-entry window, 2σ, 1e-9 relative epsilon.
func DefaultConfig() Config {
	return Config{
		Window:      10,
		Sensitivity: 2.0,
		Epsilon:     1e-9,
		MinBaseline: 2,
	}
}

// Baseline summarises the prior values of one metric.
type Baseline struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Count  int     `json:"count"`
}

// MetricResult is the classification of one sample, with the numbers that led to it.
type MetricResult struct {
	Name     string   `json:"name"`
	Unit     string   `json:"unit,omitempty"`
	Value    float64  `json:"value"`
	Outcome  Outcome  `json:"outcome"`
	Baseline Baseline `json:"baseline"`
}

// Report is the classification of a whole entry.
type Report struct {
	Suite      string             `json:"suite"`
	CommitID   string             `json:"commitId"`
	CommitURL  string             `json:"commitUrl,omitempty"`
	RecordedAt time.Time          `json:"recordedAt"`
	Tool       benchmark.Polarity `json:"tool"`
	Metrics    []MetricResult     `json:"metrics"`
	// Alert is true when any metric regressed.
	Alert bool `json:"alert"`
}

// Regressions returns the regressed metrics only.
func (r Report) Regressions() []MetricResult {
	var out []MetricResult
	for _, m := range r.Metrics {
		if m.Outcome == Regressed {
			out = append(out, m)
		}
	}
	return out
}

// Count returns how many metrics ended with the given outcome.
func (r Report) Count(o Outcome) int {
	n := 0
	for _, m := range r.Metrics {
		if m.Outcome == o {
			n++
		}
	}
	return n
}

// Detector classifies entries. The zero value is not usable; use NewDetector.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector, filling unset fields from DefaultConfig.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Sensitivity <= 0 {
		cfg.Sensitivity = def.Sensitivity
	}
	if cfg.Epsilon < 0 {
		cfg.Epsilon = def.Epsilon
	}
	if cfg.MinBaseline < 2 {
		cfg.MinBaseline = def.MinBaseline
	}
	if cfg.Window < cfg.MinBaseline {
		cfg.Window = cfg.MinBaseline
	}
	return &Detector{cfg: cfg}
}

// Config returns the effective configuration.
func (d *Detector) Config() Config { return d.cfg }

// Baseline collects up to Window values of metric from entries strictly before
// index before, newest first, and summarises them. ok is false when fewer than
// MinBaseline values were found.
func (d *Detector) Baseline(series benchmark.Series, metric string, before int) (Baseline, bool) {
	if before > len(series.Entries) {
		before = len(series.Entries)
	}
	values := make([]float64, 0, d.cfg.Window)
	for i := before - 1; i >= 0 && len(values) < d.cfg.Window; i-- {
		if s, ok := series.Entries[i].Sample(metric); ok {
			values = append(values, s.Value)
		}
	}
	if len(values) == 0 {
		return Baseline{}, false
	}
	if len(values) == 1 {
		return Baseline{Mean: values[0], Count: 1}, false
	}

	mean, std := stat.MeanStdDev(values, nil)
	return Baseline{Mean: mean, StdDev: std, Count: len(values)}, len(values) >= d.cfg.MinBaseline
}

// Evaluate classifies every sample of candidate against the entries that precede
// it in series. If candidate is not part of series it is treated as the next entry.
func (d *Detector) Evaluate(series benchmark.Series, candidate benchmark.Entry) Report {
	pos := series.Index(candidate.Key())
	if pos < 0 {
		pos = len(series.Entries)
	}

	report := Report{
		Suite:      series.Suite,
		CommitID:   candidate.Commit.ID,
		CommitURL:  candidate.Commit.URL,
		RecordedAt: candidate.RecordedAt,
		Tool:       candidate.Tool,
		Metrics:    make([]MetricResult, 0, len(candidate.Samples)),
	}

	for _, s := range candidate.Samples {
		res := MetricResult{Name: s.Name, Unit: s.Unit, Value: s.Value, Outcome: InsufficientBaseline}
		base, ok := d.Baseline(series, s.Name, pos)
		res.Baseline = base
		if ok {
			res.Outcome = d.classify(candidate.Tool, s.Value, base)
		}
		if res.Outcome == Regressed {
			report.Alert = true
		}
		report.Metrics = append(report.Metrics, res)
	}
	return report
}

func (d *Detector) classify(tool benchmark.Polarity, value float64, base Baseline) Outcome {
	if base.StdDev == 0 {
		tol := d.cfg.Epsilon * math.Max(math.Abs(base.Mean), 1)
		if math.Abs(value-base.Mean) <= tol {
			return Stable
		}
		if tool.Worse(value, base.Mean) {
			return Regressed
		}
		return Improved
	}

	margin := d.cfg.Sensitivity * base.StdDev
	switch tool {
	case benchmark.SmallerIsBetter:
		if value > base.Mean+margin {
			return Regressed
		}
		if value < base.Mean-margin {
			return Improved
		}
	case benchmark.LargerIsBetter:
		if value < base.Mean-margin {
			return Regressed
		}
		if value > base.Mean+margin {
			return Improved
		}
	default:
		panic(fmt.Sprintf("regression: invalid polarity %d", int(tool)))
	}
	return Stable
}
