// Package metrics exposes Prometheus collectors for ingestion, classification
// and the HTTP API.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/history"
)

// Metrics represents the collection of all Prometheus metrics
type Metrics struct {
	// Standard metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Tracker metrics
	EntriesIngested *prometheus.CounterVec
	IngestFailures  *prometheus.CounterVec
	IngestDuration  prometheus.Histogram
	Classifications *prometheus.CounterVec
	SuiteEntries    *prometheus.GaugeVec
	LastUpdate      prometheus.Gauge
}

// NewMetrics creates all metrics and registers them with reg. A nil reg uses
// the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "benchtrack_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "benchtrack_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	m.EntriesIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "benchtrack_entries_ingested_total",
			Help: "Entries accepted by the store, by suite and whether they were new",
		},
		[]string{"suite", "result"},
	)

	m.IngestFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "benchtrack_ingest_failures_total",
			Help: "Rejected or failed ingestions by reason",
		},
		[]string{"suite", "reason"},
	)

	m.IngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "benchtrack_ingest_duration_seconds",
			Help:    "Time to validate, persist and classify one entry",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.Classifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "benchtrack_classifications_total",
			Help: "Metric classifications of newly ingested entries",
		},
		[]string{"suite", "outcome"},
	)

	m.SuiteEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "benchtrack_suite_entries",
			Help: "Number of entries stored per suite",
		},
		[]string{"suite"},
	)

	m.LastUpdate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "benchtrack_last_update_timestamp_seconds",
			Help: "Recorded-at time of the newest entry",
		},
	)

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EntriesIngested,
		m.IngestFailures,
		m.IngestDuration,
		m.Classifications,
		m.SuiteEntries,
		m.LastUpdate,
	)

	return m
}

// FailureReason maps an ingestion error to a metric label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, benchmark.ErrValidation):
		return "validation"
	case errors.Is(err, benchmark.ErrPolarityConflict):
		return "polarity_conflict"
	case errors.Is(err, benchmark.ErrStorage):
		return "storage"
	default:
		return "other"
	}
}

// RecordIngest records the outcome of one Ingest call.
func (m *Metrics) RecordIngest(suite string, res history.IngestResult, err error, elapsed time.Duration) {
	m.IngestDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.IngestFailures.WithLabelValues(suite, FailureReason(err)).Inc()
		return
	}
	if res.Duplicate {
		m.EntriesIngested.WithLabelValues(suite, "duplicate").Inc()
		return
	}

	m.EntriesIngested.WithLabelValues(suite, "created").Inc()
	m.SuiteEntries.WithLabelValues(suite).Set(float64(res.Position + 1))
	for _, mr := range res.Report.Metrics {
		m.Classifications.WithLabelValues(suite, mr.Outcome.String()).Inc()
	}
	m.SetLastUpdate(res.Entry.RecordedAt)
}

// SetLastUpdate moves the last-update gauge forward to t.
func (m *Metrics) SetLastUpdate(t time.Time) {
	if t.IsZero() {
		return
	}
	m.LastUpdate.Set(float64(t.UnixMilli()) / 1000)
}

// SetSuites initialises the per-suite gauges from a loaded store.
func (m *Metrics) SetSuites(suites []history.SuiteInfo) {
	for _, s := range suites {
		m.SuiteEntries.WithLabelValues(s.Name).Set(float64(s.Entries))
	}
}

// GinMiddleware tracks HTTP requests by route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}
