package benchmark

import (
	"encoding/json"
	"fmt"
	"math"
)

// DefaultAlertRatio flags a metric that got twice as bad as the previous run.
const DefaultAlertRatio = 2.0

// Comparison is one metric compared between two consecutive entries.
type Comparison struct {
	Name  string  `json:"name"`
	Unit  string  `json:"unit,omitempty"`
	Prev  float64 `json:"prev"`
	Curr  float64 `json:"curr"`
	Ratio float64 `json:"ratio"` // > 1 means worse, under the entry's polarity
	// PercentDiff is the raw change of Curr relative to Prev.
	PercentDiff float64 `json:"percentDiff"`
	Alert       bool    `json:"alert"`
}

// Compare pairs metrics present in both entries and computes how much worse
// curr is than prev. Metrics only present in one entry are skipped.
func Compare(prev, curr Entry, alertRatio float64) []Comparison {
	if alertRatio <= 0 {
		alertRatio = DefaultAlertRatio
	}

	prevMap := make(map[string]Sample, len(prev.Samples))
	for _, s := range prev.Samples {
		prevMap[s.Name] = s
	}

	var comparisons []Comparison
	for _, c := range curr.Samples {
		p, ok := prevMap[c.Name]
		if !ok {
			continue
		}
		comp := Comparison{
			Name:  c.Name,
			Unit:  c.Unit,
			Prev:  p.Value,
			Curr:  c.Value,
			Ratio: worseRatio(curr.Tool, p.Value, c.Value),
		}
		if p.Value != 0 {
			comp.PercentDiff = (c.Value - p.Value) / p.Value * 100
		}
		comp.Alert = comp.Ratio > alertRatio
		comparisons = append(comparisons, comp)
	}
	return comparisons
}

// worseRatio is curr/prev for smaller-is-better and prev/curr for larger-is-better.
// A zero denominator gives +Inf for a positive numerator and 1 (no signal) otherwise.
func worseRatio(tool Polarity, prev, curr float64) float64 {
	num, den := curr, prev
	if tool == LargerIsBetter {
		num, den = prev, curr
	}
	if den == 0 {
		if num > 0 {
			return math.Inf(1)
		}
		return 1
	}
	return num / den
}

// MarshalJSON writes an infinite ratio as null, which JSON cannot represent.
func (c Comparison) MarshalJSON() ([]byte, error) {
	type plain Comparison
	out := struct {
		plain
		Ratio *float64 `json:"ratio"`
	}{plain: plain(c)}
	if !math.IsInf(c.Ratio, 0) && !math.IsNaN(c.Ratio) {
		out.Ratio = &c.Ratio
	}
	return json.Marshal(out)
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s: %.2f -> %.2f %s (%+.2f%%, x%.2f)", c.Name, c.Prev, c.Curr, c.Unit, c.PercentDiff, c.Ratio)
}
