// Package web serves the benchmark history over HTTP: CI jobs POST entries,
// dashboards read series, the latest classification and the data.js export.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/history"
	"benchtrack/internal/metrics"
	"benchtrack/internal/telemetry"
)

const requestIDHeader = "X-Request-ID"

// Server handles the HTTP API
type Server struct {
	store      *history.Store
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
	alertRatio float64
	logger     *slog.Logger
	now        func() time.Time

	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request and ingestion metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithGatherer serves g on /metrics. Without it the route is not registered.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithAlertRatio sets the threshold used by the compare endpoint.
func WithAlertRatio(r float64) Option {
	return func(s *Server) { s.alertRatio = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a new API server backed by store.
func NewServer(store *history.Store, opts ...Option) *Server {
	s := &Server{
		store:      store,
		alertRatio: benchmark.DefaultAlertRatio,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	if s.metrics != nil {
		r.Use(s.metrics.GinMiddleware())
	}

	v1 := r.Group("/api/v1")
	{
		v1.GET("/suites", s.handleSuites)
		v1.POST("/suites/:suite/entries", s.handleIngest)
		v1.GET("/suites/:suite/latest", s.handleLatest)
		v1.GET("/suites/:suite/metrics/:metric", s.handleMetric)
		v1.GET("/suites/:suite/compare", s.handleCompare)
	}

	r.GET("/data.js", s.handleExport(true))
	r.GET("/data.json", s.handleExport(false))
	r.GET("/healthz", s.handleHealth)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(telemetry.MetricsHandler(s.gatherer)))
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := getOrCreateRequestID(c)
		c.Next()

		s.logger.Debug("http request",
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// getOrCreateRequestID gets or creates a request ID.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header(requestIDHeader, requestID)
	return requestID
}

// Run serves the API on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting API server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
