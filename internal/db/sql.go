// Package db holds the persisters that back a history.Store: a data.js/JSON
// file, SQLite, PostgreSQL, Badger and an in-memory store for tests.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/history"
)

// dialect holds the statements that differ between SQL engines.
type dialect struct {
	name        string
	insertEntry string
	upsertMeta  string
	selectMeta  string
	selectAll   string
}

// sqlStore is the shared SQL persister. Each Append is one transaction.
type sqlStore struct {
	db *sql.DB
	d  dialect
}

func (s *sqlStore) Load(ctx context.Context) (benchmark.History, error) {
	h := benchmark.History{Entries: make(map[string][]benchmark.Entry)}

	var repoURL sql.NullString
	var lastUpdate sql.NullInt64
	err := s.db.QueryRowContext(ctx, s.d.selectMeta).Scan(&repoURL, &lastUpdate)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return benchmark.History{}, fmt.Errorf("%s: read repository: %w", s.d.name, err)
	}
	h.RepoURL = repoURL.String
	h.LastUpdate = benchmark.FromMillis(lastUpdate.Int64)

	rows, err := s.db.QueryContext(ctx, s.d.selectAll)
	if err != nil {
		return benchmark.History{}, fmt.Errorf("%s: read entries: %w", s.d.name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var suite, payload string
		if err := rows.Scan(&suite, &payload); err != nil {
			return benchmark.History{}, fmt.Errorf("%s: scan entry: %w", s.d.name, err)
		}
		var e benchmark.Entry
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			return benchmark.History{}, fmt.Errorf("%s: decode entry of suite %q: %w", s.d.name, suite, err)
		}
		h.Entries[suite] = append(h.Entries[suite], e)
	}
	if err := rows.Err(); err != nil {
		return benchmark.History{}, fmt.Errorf("%s: read entries: %w", s.d.name, err)
	}
	return h, nil
}

func (s *sqlStore) Append(ctx context.Context, rec history.AppendRecord) error {
	payload, err := json.Marshal(rec.Entry)
	if err != nil {
		return fmt.Errorf("%s: encode entry: %w", s.d.name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", s.d.name, err)
	}
	defer tx.Rollback()

	key := rec.Entry.Key()
	if _, err := tx.ExecContext(ctx, s.d.insertEntry,
		rec.Suite, rec.Position, key.CommitID, key.RecordedAt, rec.Entry.Tool.String(), string(payload),
	); err != nil {
		return fmt.Errorf("%s: insert entry: %w", s.d.name, err)
	}
	if _, err := tx.ExecContext(ctx, s.d.upsertMeta, rec.RepoURL, benchmark.ToMillis(rec.LastUpdate)); err != nil {
		return fmt.Errorf("%s: update repository: %w", s.d.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", s.d.name, err)
	}
	return nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}
