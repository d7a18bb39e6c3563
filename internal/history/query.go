package history

import (
	"context"
	"iter"
	"time"
)

// Point is one value of a metric in a suite's time series.
type Point struct {
	CommitID   string    `json:"commitId"`
	CommitURL  string    `json:"commitUrl,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
}

// Range restricts a query. Zero From or To leaves that side open; both bounds are
// inclusive. Offset and Limit page over the points that match the time window.
// A zero Limit means no limit.
type Range struct {
	From   time.Time
	To     time.Time
	Offset int
	Limit  int
}

func (r Range) contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && t.After(r.To) {
		return false
	}
	return true
}

// Query returns the points of metric in suite in recorded order. Entries that
// don't carry the metric are skipped. The sequence reads the snapshot current
// when iteration starts, so it never observes a half-applied ingestion, and it
// can be ranged over more than once. Iteration stops early when ctx is done.
func (s *Store) Query(ctx context.Context, suite, metric string, rng Range) iter.Seq[Point] {
	return func(yield func(Point) bool) {
		st := s.lookup(suite)
		if st == nil {
			return
		}
		skipped, emitted := 0, 0
		for _, e := range st.snapshot() {
			if ctx.Err() != nil {
				return
			}
			if !rng.contains(e.RecordedAt) {
				continue
			}
			smp, ok := e.Sample(metric)
			if !ok {
				continue
			}
			if skipped < rng.Offset {
				skipped++
				continue
			}
			if rng.Limit > 0 && emitted >= rng.Limit {
				return
			}
			emitted++
			p := Point{
				CommitID:   e.Commit.ID,
				CommitURL:  e.Commit.URL,
				RecordedAt: e.RecordedAt,
				Value:      smp.Value,
				Unit:       smp.Unit,
			}
			if !yield(p) {
				return
			}
		}
	}
}
