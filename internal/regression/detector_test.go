package regression

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"benchtrack/internal/benchmark"
)

func seriesOf(suite, metric string, tool benchmark.Polarity, values ...float64) benchmark.Series {
	s := benchmark.Series{Suite: suite}
	for i, v := range values {
		s.Entries = append(s.Entries, entryAt(i, tool, benchmark.Sample{Name: metric, Value: v}))
	}
	return s
}

func entryAt(i int, tool benchmark.Polarity, samples ...benchmark.Sample) benchmark.Entry {
	return benchmark.Entry{
		Commit:     benchmark.Commit{ID: fmt.Sprintf("c%02d", i)},
		RecordedAt: benchmark.FromMillis(int64(1671678721461 + i*86400000)),
		Tool:       tool,
		Samples:    samples,
	}
}

func TestEvaluate_SmallerIsBetterRegression(t *testing.T) {
	d := NewDetector(DefaultConfig())
	series := seriesOf("Sysbench Benchmark", "Minimum latency", benchmark.SmallerIsBetter, 0.09, 0.07, 0.08, 0.07, 0.09)
	candidate := entryAt(5, benchmark.SmallerIsBetter, benchmark.Sample{Name: "Minimum latency", Value: 20.0, Unit: "ms"})
	series.Entries = append(series.Entries, candidate)

	report := d.Evaluate(series, candidate)

	require.Len(t, report.Metrics, 1)
	m := report.Metrics[0]
	assert.Equal(t, Regressed, m.Outcome)
	assert.Equal(t, 5, m.Baseline.Count)
	assert.InDelta(t, 0.08, m.Baseline.Mean, 1e-9)
	assert.InDelta(t, 0.01, m.Baseline.StdDev, 1e-9)
	assert.Equal(t, 20.0, m.Value)
	assert.True(t, report.Alert)
	assert.Len(t, report.Regressions(), 1)
}

func TestEvaluate_LargerIsBetterRegression(t *testing.T) {
	d := NewDetector(DefaultConfig())
	series := seriesOf("Iperf3 Benchmark", "Sender Average Rate", benchmark.LargerIsBetter, 3658, 3701, 3628, 3674, 3008)
	candidate := entryAt(5, benchmark.LargerIsBetter, benchmark.Sample{Name: "Sender Average Rate", Value: 30})

	// not yet part of the series: treated as the next entry
	report := d.Evaluate(series, candidate)

	require.Len(t, report.Metrics, 1)
	assert.Equal(t, Regressed, report.Metrics[0].Outcome)
	assert.Equal(t, 5, report.Metrics[0].Baseline.Count)
	assert.True(t, report.Alert)
}

func TestEvaluate_InsufficientBaseline(t *testing.T) {
	d := NewDetector(DefaultConfig())
	series := benchmark.Series{Suite: "FIO Benchmark"}

	first := entryAt(0, benchmark.LargerIsBetter, benchmark.Sample{Name: "Sequential Write Throughput", Value: 500})
	series.Entries = append(series.Entries, first)
	r1 := d.Evaluate(series, first)
	assert.Equal(t, InsufficientBaseline, r1.Metrics[0].Outcome)
	assert.Equal(t, 0, r1.Metrics[0].Baseline.Count)

	second := entryAt(1, benchmark.LargerIsBetter, benchmark.Sample{Name: "Sequential Write Throughput", Value: 5})
	series.Entries = append(series.Entries, second)
	r2 := d.Evaluate(series, second)
	assert.Equal(t, InsufficientBaseline, r2.Metrics[0].Outcome)
	assert.Equal(t, 1, r2.Metrics[0].Baseline.Count)
	assert.False(t, r2.Alert)
}

func TestEvaluate_StableAndImproved(t *testing.T) {
	d := NewDetector(DefaultConfig())
	series := seriesOf("Sysbench Benchmark", "avg", benchmark.SmallerIsBetter, 100, 102, 98, 101, 99)

	stable := d.Evaluate(series, entryAt(5, benchmark.SmallerIsBetter, benchmark.Sample{Name: "avg", Value: 101.5}))
	assert.Equal(t, Stable, stable.Metrics[0].Outcome)
	assert.False(t, stable.Alert)

	improved := d.Evaluate(series, entryAt(5, benchmark.SmallerIsBetter, benchmark.Sample{Name: "avg", Value: 50}))
	assert.Equal(t, Improved, improved.Metrics[0].Outcome)
	assert.False(t, improved.Alert)
}

func TestEvaluate_FlatBaseline(t *testing.T) {
	d := NewDetector(DefaultConfig())
	series := seriesOf("FIO Benchmark", "seq", benchmark.LargerIsBetter, 500, 500, 500)

	tests := []struct {
		value float64
		want  Outcome
	}{
		{500, Stable},
		{500 + 1e-10, Stable},
		{499.9, Regressed},
		{500.1, Improved},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.value), func(t *testing.T) {
			r := d.Evaluate(series, entryAt(3, benchmark.LargerIsBetter, benchmark.Sample{Name: "seq", Value: tt.value}))
			assert.Equal(t, tt.want, r.Metrics[0].Outcome)
			assert.Equal(t, 0.0, r.Metrics[0].Baseline.StdDev)
		})
	}
}

func TestBaseline_WindowAndSkipsEntriesWithoutMetric(t *testing.T) {
	d := NewDetector(Config{Window: 3})
	series := benchmark.Series{Suite: "S"}
	for i, v := range []float64{1000, 1, 2, 3, 4} {
		series.Entries = append(series.Entries, entryAt(i, benchmark.SmallerIsBetter, benchmark.Sample{Name: "m", Value: v}))
	}
	// an entry without the metric in between
	series.Entries = append(series.Entries[:3], append([]benchmark.Entry{entryAt(9, benchmark.SmallerIsBetter, benchmark.Sample{Name: "other", Value: 1})}, series.Entries[3:]...)...)

	base, ok := d.Baseline(series, "m", len(series.Entries))
	require.True(t, ok)
	assert.Equal(t, 3, base.Count)
	assert.InDelta(t, 3.0, base.Mean, 1e-9) // 2, 3, 4

	// only entries before the index count
	base, ok = d.Baseline(series, "m", 2)
	require.True(t, ok)
	assert.InDelta(t, 500.5, base.Mean, 1e-9)

	_, ok = d.Baseline(series, "missing", len(series.Entries))
	assert.False(t, ok)
}

func TestEvaluate_CandidateInMiddleUsesOnlyPriorEntries(t *testing.T) {
	d := NewDetector(DefaultConfig())
	series := seriesOf("S", "m", benchmark.SmallerIsBetter, 1, 1.1, 0.9, 50, 51)
	r := d.Evaluate(series, series.Entries[3])
	assert.Equal(t, 3, r.Metrics[0].Baseline.Count)
	assert.Equal(t, Regressed, r.Metrics[0].Outcome)
}

func TestNewDetector_Defaults(t *testing.T) {
	d := NewDetector(Config{Window: 1, MinBaseline: 1, Sensitivity: -1, Epsilon: -1})
	cfg := d.Config()
	assert.Equal(t, 2, cfg.MinBaseline)
	assert.Equal(t, 2, cfg.Window)
	assert.Equal(t, 2.0, cfg.Sensitivity)
	assert.Equal(t, 1e-9, cfg.Epsilon)
}

func TestReport_JSON(t *testing.T) {
	d := NewDetector(DefaultConfig())
	series := seriesOf("Sysbench Benchmark", "m", benchmark.SmallerIsBetter, 1, 2)
	r := d.Evaluate(series, entryAt(2, benchmark.SmallerIsBetter, benchmark.Sample{Name: "m", Value: 1.5}))

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"outcome":"stable"`)
	assert.Contains(t, string(data), `"tool":"customSmallerIsBetter"`)

	var back Report
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Stable, back.Metrics[0].Outcome)
	assert.Equal(t, 1, back.Count(Stable))
}
