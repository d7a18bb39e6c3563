package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/history"
	"benchtrack/internal/utils"
)

// handleIngest handles POST /api/v1/suites/:suite/entries.
//
// The body is one entry in the data.js wire shape. A missing date is stamped
// with the server time. Returns 201 for a new entry and 200 for a duplicate.
func (s *Server) handleIngest(c *gin.Context) {
	suite := c.Param("suite")
	logger := s.logger.With("request_id", c.Writer.Header().Get(requestIDHeader), "suite", suite)

	var entry benchmark.Entry
	if err := c.ShouldBindJSON(&entry); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  CodeInvalidRequest,
		})
		return
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = s.now().UTC().Truncate(time.Millisecond)
	}

	start := time.Now()
	res, err := s.store.Ingest(c.Request.Context(), suite, entry)
	if s.metrics != nil {
		s.metrics.RecordIngest(suite, res, err, time.Since(start))
	}
	if err != nil {
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			logger.Error("Ingest failed", "error", err)
		} else {
			logger.Warn("Entry rejected", "error", err)
		}
		c.JSON(status, body)
		return
	}

	if res.Duplicate {
		c.JSON(http.StatusOK, res)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// errorResponse maps store errors to a status and body.
func errorResponse(err error) (int, ErrorResponse) {
	var verr *benchmark.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidEntry, Field: verr.Field}
	case errors.Is(err, benchmark.ErrPolarityConflict):
		return http.StatusConflict, ErrorResponse{Error: err.Error(), Code: CodePolarityConflict}
	case errors.Is(err, benchmark.ErrStorage):
		return http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: CodeStorageUnavailable}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: CodeInternal}
	}
}

func (s *Server) handleSuites(c *gin.Context) {
	suites := s.store.Suites()
	if suites == nil {
		suites = []history.SuiteInfo{}
	}
	c.JSON(http.StatusOK, SuitesResponse{
		RepoURL:    s.store.RepoURL(),
		LastUpdate: s.store.LastUpdate(),
		Suites:     suites,
	})
}

// handleLatest handles GET /api/v1/suites/:suite/latest[?classify=true].
func (s *Server) handleLatest(c *gin.Context) {
	suite := c.Param("suite")
	entry, ok := s.store.Latest(suite)
	if !ok {
		notFound(c, "suite "+strconv.Quote(suite)+" has no entries")
		return
	}

	resp := LatestResponse{Suite: suite, Entry: entry}
	if classify, _ := strconv.ParseBool(c.Query("classify")); classify {
		if report, ok := s.store.Classify(suite, ""); ok {
			resp.Classification = &report
		}
	}
	c.JSON(http.StatusOK, resp)
}

// handleMetric handles GET /api/v1/suites/:suite/metrics/:metric. An unknown
// suite or metric yields an empty points list.
//
// Query parameters:
//
//	since, until: inclusive window on recordedAt (RFC3339, YYYY-MM-DD, epoch ms or "7d")
//	offset, limit: page over the matching points
func (s *Server) handleMetric(c *gin.Context) {
	suite, metric := c.Param("suite"), c.Param("metric")
	rng, err := s.parseRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeInvalidQuery})
		return
	}

	points := []history.Point{}
	for p := range s.store.Query(c.Request.Context(), suite, metric, rng) {
		points = append(points, p)
	}
	c.JSON(http.StatusOK, PointsResponse{Suite: suite, Metric: metric, Points: points})
}

func (s *Server) parseRange(c *gin.Context) (history.Range, error) {
	var rng history.Range
	now := s.now()
	var err error
	if v := c.Query("since"); v != "" {
		if rng.From, err = utils.ParseTime(v, now); err != nil {
			return rng, errors.New("since: " + err.Error())
		}
	}
	if v := c.Query("until"); v != "" {
		if rng.To, err = utils.ParseTime(v, now); err != nil {
			return rng, errors.New("until: " + err.Error())
		}
	}
	if rng.Offset, err = nonNegative(c.Query("offset")); err != nil {
		return rng, errors.New("offset: " + err.Error())
	}
	if rng.Limit, err = nonNegative(c.Query("limit")); err != nil {
		return rng, errors.New("limit: " + err.Error())
	}
	return rng, nil
}

func nonNegative(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}

// handleCompare handles GET /api/v1/suites/:suite/compare?base=&head=.
// Without parameters the last two entries are compared.
func (s *Server) handleCompare(c *gin.Context) {
	suite := c.Param("suite")
	series, ok := s.store.Series(suite)
	if !ok {
		notFound(c, "unknown suite "+strconv.Quote(suite))
		return
	}

	head, ok := findEntry(series.Entries, c.Query("head"), len(series.Entries)-1)
	if !ok {
		notFound(c, "head commit not found")
		return
	}
	base, ok := findEntry(series.Entries, c.Query("base"), head-1)
	if !ok {
		notFound(c, "base commit not found")
		return
	}

	prev, curr := series.Entries[base], series.Entries[head]
	resp := CompareResponse{
		Suite:       suite,
		Base:        prev.Commit.ID,
		Head:        curr.Commit.ID,
		AlertRatio:  s.alertRatio,
		Comparisons: benchmark.Compare(prev, curr, s.alertRatio),
	}
	if resp.Comparisons == nil {
		resp.Comparisons = []benchmark.Comparison{}
	}
	for _, cmp := range resp.Comparisons {
		resp.Alert = resp.Alert || cmp.Alert
	}
	c.JSON(http.StatusOK, resp)
}

// findEntry returns the index of the newest entry for commitID, or def when
// commitID is empty.
func findEntry(entries []benchmark.Entry, commitID string, def int) (int, bool) {
	if commitID == "" {
		return def, def >= 0 && def < len(entries)
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Commit.ID == commitID {
			return i, true
		}
	}
	return -1, false
}

func (s *Server) handleExport(asDataJS bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := s.store.Snapshot()
		if !asDataJS {
			c.JSON(http.StatusOK, snap)
			return
		}
		c.Header("Content-Type", "application/javascript; charset=utf-8")
		c.Status(http.StatusOK)
		if err := benchmark.EncodeHistory(c.Writer, snap, true); err != nil {
			s.logger.Error("Failed to encode data.js", "error", err)
		}
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:     "ok",
		Suites:     len(s.store.Suites()),
		LastUpdate: s.store.LastUpdate(),
	})
}

func notFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: msg, Code: CodeNotFound})
}
