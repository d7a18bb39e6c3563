package db

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

var postgresDialect = dialect{
	name:        "postgres",
	insertEntry: `INSERT INTO bench_entries (suite, position, commit_id, recorded_at, tool, payload) VALUES ($1, $2, $3, $4, $5, $6)`,
	upsertMeta: `INSERT INTO bench_repository (id, repo_url, last_update) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET repo_url = EXCLUDED.repo_url, last_update = GREATEST(bench_repository.last_update, EXCLUDED.last_update)`,
	selectMeta: `SELECT repo_url, last_update FROM bench_repository WHERE id = 1`,
	selectAll:  `SELECT suite, payload FROM bench_entries ORDER BY suite, position`,
}

// PostgresStore persists history in PostgreSQL.
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore creates a new Postgres store and applies migrations
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := newPostgresStore(db)
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func newPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{sqlStore{db: db, d: postgresDialect}}
}

func (s *PostgresStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bench_repository (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			repo_url TEXT NOT NULL DEFAULT '',
			last_update BIGINT NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS bench_entries (
			suite TEXT NOT NULL,
			position INTEGER NOT NULL,
			commit_id TEXT NOT NULL,
			recorded_at BIGINT NOT NULL,
			tool TEXT NOT NULL,
			payload JSONB NOT NULL,
			PRIMARY KEY (suite, position),
			UNIQUE (suite, commit_id, recorded_at)
		);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}

	// Performance indexes
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_bench_entries_recorded ON bench_entries(suite, recorded_at)`); err != nil {
		slog.Debug("optional index creation failed", "error", err)
	}
	return nil
}
