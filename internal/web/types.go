package web

import (
	"time"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/history"
	"benchtrack/internal/regression"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable error code.
	Code string `json:"code,omitempty"`

	// Field names the offending entry field for INVALID_ENTRY.
	Field string `json:"field,omitempty"`
}

// Error codes.
const (
	CodeInvalidEntry       = "INVALID_ENTRY"
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeInvalidQuery       = "INVALID_QUERY"
	CodePolarityConflict   = "POLARITY_CONFLICT"
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeNotFound           = "NOT_FOUND"
	CodeInternal           = "INTERNAL"
)

// SuitesResponse lists every non-empty suite.
type SuitesResponse struct {
	RepoURL    string              `json:"repoUrl,omitempty"`
	LastUpdate time.Time           `json:"lastUpdate"`
	Suites     []history.SuiteInfo `json:"suites"`
}

// LatestResponse is the newest entry of a suite, classified on request.
type LatestResponse struct {
	Suite          string             `json:"suite"`
	Entry          benchmark.Entry    `json:"entry"`
	Classification *regression.Report `json:"classification,omitempty"`
}

// PointsResponse is one metric's time series.
type PointsResponse struct {
	Suite  string          `json:"suite"`
	Metric string          `json:"metric"`
	Points []history.Point `json:"points"`
}

// CompareResponse compares two entries of a suite metric by metric.
type CompareResponse struct {
	Suite       string                 `json:"suite"`
	Base        string                 `json:"base"`
	Head        string                 `json:"head"`
	AlertRatio  float64                `json:"alertRatio"`
	Comparisons []benchmark.Comparison `json:"comparisons"`
	Alert       bool                   `json:"alert"`
}

// HealthResponse is returned by /healthz.
type HealthResponse struct {
	Status     string    `json:"status"`
	Suites     int       `json:"suites"`
	LastUpdate time.Time `json:"lastUpdate"`
}
