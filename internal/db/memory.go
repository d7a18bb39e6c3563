package db

import (
	"context"
	"sync"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/history"
)

// MemoryStore keeps history in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu  sync.Mutex
	doc benchmark.History
}

// NewMemoryStore returns a store seeded with h.
func NewMemoryStore(h benchmark.History) *MemoryStore {
	if h.Entries == nil {
		h.Entries = map[string][]benchmark.Entry{}
	}
	return &MemoryStore{doc: cloneHistory(h)}
}

func (s *MemoryStore) Load(ctx context.Context) (benchmark.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneHistory(s.doc), nil
}

func (s *MemoryStore) Append(ctx context.Context, rec history.AppendRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Entries[rec.Suite] = append(s.doc.Entries[rec.Suite], rec.Entry.Clone())
	if rec.RepoURL != "" {
		s.doc.RepoURL = rec.RepoURL
	}
	if rec.LastUpdate.After(s.doc.LastUpdate) {
		s.doc.LastUpdate = rec.LastUpdate
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
