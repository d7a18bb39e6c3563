// Package influx mirrors ingested benchmark samples into InfluxDB so they can
// be charted next to other time series.
package influx

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/history"
	"benchtrack/internal/regression"
)

// Measurement is the InfluxDB measurement every sample is written to.
const Measurement = "benchmark"

// Config holds the InfluxDB connection settings.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Mirror writes one point per sample of every newly stored entry.
type Mirror struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	bucket   string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewMirror connects a blocking writer to cfg.Bucket.
func NewMirror(cfg Config, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Mirror{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
		timeout:  10 * time.Second,
		logger:   logger,
	}
}

// Points converts an entry to line-protocol points. The commit id is a tag so
// entries of different commits recorded in the same millisecond stay separate
// series. When report is non-nil the outcome and baseline of each metric are
// added as fields.
func Points(suite string, e benchmark.Entry, report *regression.Report) []*write.Point {
	results := make(map[string]regression.MetricResult)
	if report != nil {
		for _, m := range report.Metrics {
			results[m.Name] = m
		}
	}

	points := make([]*write.Point, 0, len(e.Samples))
	for _, s := range e.Samples {
		p := influxdb2.NewPointWithMeasurement(Measurement).
			AddTag("suite", suite).
			AddTag("metric", s.Name).
			AddTag("tool", e.Tool.String()).
			AddTag("commit_id", e.Commit.ID).
			AddField("value", s.Value).
			SetTime(e.RecordedAt)
		if s.Unit != "" {
			p.AddTag("unit", s.Unit)
		}
		if m, ok := results[s.Name]; ok {
			p.AddField("outcome", m.Outcome.String()).
				AddField("baseline_count", m.Baseline.Count)
			if m.Baseline.Count > 0 {
				p.AddField("baseline_mean", m.Baseline.Mean).
					AddField("baseline_stddev", m.Baseline.StdDev)
			}
		}
		points = append(points, p)
	}
	return points
}

// WriteEntry writes the points of one entry.
func (m *Mirror) WriteEntry(ctx context.Context, suite string, e benchmark.Entry, report *regression.Report) error {
	points := Points(suite, e, report)
	if len(points) == 0 {
		return nil
	}
	if err := m.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("influx write to %s: %w", m.bucket, err)
	}
	return nil
}

// Backfill writes every entry of h, suite by suite. It stops at the first error.
func (m *Mirror) Backfill(ctx context.Context, h benchmark.History) (int, error) {
	n := 0
	for suite, entries := range h.Entries {
		for _, e := range entries {
			if err := m.WriteEntry(ctx, suite, e, nil); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

// Observe implements history.Observer. Write failures are logged, never returned.
func (m *Mirror) Observe(ctx context.Context, res history.IngestResult) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	if err := m.WriteEntry(ctx, res.Suite, res.Entry, &res.Report); err != nil {
		m.logger.Error("failed to mirror entry to influx", "suite", res.Suite, "commit_id", res.Entry.Commit.ID, "error", err)
		return
	}
	m.logger.Debug("entry mirrored to influx", "suite", res.Suite, "points", len(res.Entry.Samples))
}

// Close releases the client.
func (m *Mirror) Close() {
	m.client.Close()
}
