package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

var sqliteDialect = dialect{
	name:        "sqlite",
	insertEntry: `INSERT INTO entries (suite, position, commit_id, recorded_at, tool, payload) VALUES (?, ?, ?, ?, ?, ?)`,
	upsertMeta: `INSERT INTO repository (id, repo_url, last_update) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET repo_url = excluded.repo_url, last_update = max(repository.last_update, excluded.last_update)`,
	selectMeta: `SELECT repo_url, last_update FROM repository WHERE id = 1`,
	selectAll:  `SELECT suite, payload FROM entries ORDER BY suite, position`,
}

// SQLiteStore persists history in a SQLite database.
type SQLiteStore struct {
	sqlStore
}

// NewSQLiteStore creates a new SQLite store and applies migrations
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; SQLite serialises them anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{sqlStore{db: db, d: sqliteDialect}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS repository (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			repo_url TEXT NOT NULL DEFAULT '',
			last_update INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS entries (
			suite TEXT NOT NULL,
			position INTEGER NOT NULL,
			commit_id TEXT NOT NULL,
			recorded_at INTEGER NOT NULL,
			tool TEXT NOT NULL,
			payload TEXT NOT NULL,
			PRIMARY KEY (suite, position),
			UNIQUE (suite, commit_id, recorded_at)
		);`,
	}
	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}
