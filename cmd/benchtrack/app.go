package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/config"
	"benchtrack/internal/db"
	"benchtrack/internal/history"
	"benchtrack/internal/influx"
	"benchtrack/internal/metrics"
	"benchtrack/internal/notify"
	"benchtrack/internal/regression"
	"benchtrack/internal/telemetry"
)

// appOptions selects which side effects an opened store carries.
type appOptions struct {
	// notify sends regression alerts for new entries.
	notify bool
	// mirror writes new entries to InfluxDB when influx.enabled is set.
	mirror bool
	// metrics creates a registry with the tracker collectors.
	metrics bool
	// repoURL is used when neither the config nor the stored history has one.
	repoURL string
}

// app is an opened history store plus the integrations configured for it.
type app struct {
	settings config.Settings
	store    *history.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	notifier *notify.Manager
	mirror   *influx.Mirror
	logger   *slog.Logger
}

// newPersister is replaced in tests.
var newPersister = func(s config.Settings, logger *slog.Logger) (history.Persister, error) {
	return db.NewStore(db.StoreConfig{
		Type:             s.Store.Type,
		ConnectionString: s.Store.Location(),
		Logger:           logger,
	})
}

func detectorConfig(s config.Settings) regression.Config {
	return regression.Config{
		Window:      s.Detector.Window,
		Sensitivity: s.Detector.Sensitivity,
		Epsilon:     s.Detector.Epsilon,
		MinBaseline: s.Detector.MinBaseline,
	}
}

func openApp(ctx context.Context, opts appOptions) (*app, error) {
	settings, err := config.Current()
	if err != nil {
		return nil, err
	}
	a := &app{settings: settings, logger: slog.Default()}

	p, err := newPersister(settings, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", settings.Store.Type, err)
	}

	storeOpts := []history.Option{
		history.WithLogger(a.logger),
		history.WithDetector(regression.NewDetector(detectorConfig(settings))),
	}
	if settings.RepoURL != "" {
		storeOpts = append(storeOpts, history.WithRepoURL(settings.RepoURL))
	}

	if opts.metrics {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.metrics = metrics.NewMetrics(a.registry)
	}
	if opts.notify {
		a.notifier = notify.NewManagerFromConfig(settings.RepoURL, a.logger)
		if a.notifier.Enabled() {
			storeOpts = append(storeOpts, history.WithObserver(a.notifier))
		}
	}
	if opts.mirror && settings.Influx.Enabled {
		a.mirror = influx.NewMirror(influxConfig(settings), a.logger)
		storeOpts = append(storeOpts, history.WithObserver(a.mirror))
	}

	if opts.repoURL != "" {
		storeOpts = append(storeOpts, history.WithFallbackRepoURL(opts.repoURL))
	}

	store, err := history.Open(ctx, p, storeOpts...)
	if err != nil {
		p.Close()
		a.closeIntegrations()
		return nil, err
	}
	a.store = store

	if a.metrics != nil {
		a.metrics.SetSuites(a.store.Suites())
		a.metrics.SetLastUpdate(a.store.LastUpdate())
	}
	return a, nil
}

func influxConfig(s config.Settings) influx.Config {
	return influx.Config{URL: s.Influx.URL, Token: s.Influx.Token, Org: s.Influx.Org, Bucket: s.Influx.Bucket}
}

func (a *app) closeIntegrations() {
	if a.mirror != nil {
		a.mirror.Close()
	}
}

func (a *app) Close() error {
	a.closeIntegrations()
	if err := a.store.Close(); err != nil {
		telemetry.LogError("Failed to close store", err)
		return err
	}
	return nil
}

// Ingest stores one entry and records it when metrics are enabled.
func (a *app) Ingest(ctx context.Context, suite string, e benchmark.Entry) (history.IngestResult, error) {
	start := time.Now()
	res, err := a.store.Ingest(ctx, suite, e)
	if a.metrics != nil {
		a.metrics.RecordIngest(suite, res, err, time.Since(start))
	}
	return res, err
}
