package db

import (
	"fmt"
	"log/slog"
	"strings"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/history"
)

// DefaultFilePath is where the file store writes when no path is given.
const DefaultFilePath = "benchmarks/data.js"

// StoreConfig holds configuration for the storage backend
type StoreConfig struct {
	Type             string // "file", "sqlite", "postgres", "badger" or "memory"
	ConnectionString string // File or directory path, or DSN for Postgres
	Logger           *slog.Logger
}

// NewStore creates a new Persister based on the provided configuration
func NewStore(config StoreConfig) (history.Persister, error) {
	switch strings.ToLower(config.Type) {
	case "postgres", "postgresql":
		if config.ConnectionString == "" {
			return nil, fmt.Errorf("postgres connection string is required")
		}
		return NewPostgresStore(config.ConnectionString)
	case "sqlite", "sqlite3":
		if config.ConnectionString == "" {
			config.ConnectionString = "benchmarks/history.db"
		}
		return NewSQLiteStore(config.ConnectionString)
	case "badger":
		if config.ConnectionString == "" {
			config.ConnectionString = "benchmarks/badger"
		}
		cfg := DefaultBadgerConfig(config.ConnectionString)
		cfg.Logger = config.Logger
		return NewBadgerStore(cfg)
	case "memory":
		return NewMemoryStore(benchmark.History{}), nil
	case "", "file", "json", "datajs":
		if config.ConnectionString == "" {
			config.ConnectionString = DefaultFilePath
		}
		return NewFileStore(config.ConnectionString)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}
