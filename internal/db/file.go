package db

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/history"
)

// FileStore keeps the whole history in one JSON document, or in a data.js
// script when the path ends in .js. Every append rewrites the file atomically.
type FileStore struct {
	path   string
	dataJS bool

	mu     sync.Mutex
	doc    benchmark.History
	loaded bool

	write func(path string, data []byte) error
}

// NewFileStore creates a file store, creating the parent directory if needed.
func NewFileStore(path string) (*FileStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return &FileStore{path: path, dataJS: benchmark.IsDataJSPath(path), write: writeFileAtomic}, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (benchmark.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return benchmark.History{}, err
	}
	s.doc = doc
	s.loaded = true
	return cloneHistory(doc), nil
}

func (s *FileStore) read() (benchmark.History, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return benchmark.History{Entries: map[string][]benchmark.Entry{}}, nil
		}
		return benchmark.History{}, err
	}
	defer f.Close()

	h, err := benchmark.DecodeHistory(f)
	if err != nil {
		return benchmark.History{}, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	return h, nil
}

func (s *FileStore) Append(ctx context.Context, rec history.AppendRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		doc, err := s.read()
		if err != nil {
			return err
		}
		s.doc = doc
		s.loaded = true
	}

	entries := s.doc.Entries[rec.Suite]
	if rec.Position != len(entries) {
		return fmt.Errorf("suite %q: append at position %d, file holds %d entries", rec.Suite, rec.Position, len(entries))
	}

	next := cloneHistory(s.doc)
	next.Entries[rec.Suite] = append(next.Entries[rec.Suite], rec.Entry.Clone())
	if rec.RepoURL != "" {
		next.RepoURL = rec.RepoURL
	}
	if rec.LastUpdate.After(next.LastUpdate) {
		next.LastUpdate = rec.LastUpdate
	}

	var buf bytes.Buffer
	if err := benchmark.EncodeHistory(&buf, next, s.dataJS); err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}
	if err := s.write(s.path, buf.Bytes()); err != nil {
		return err
	}
	s.doc = next
	return nil
}

func (s *FileStore) Close() error { return nil }

// writeFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers never see a partial document.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func cloneHistory(h benchmark.History) benchmark.History {
	out := benchmark.History{
		RepoURL:    h.RepoURL,
		LastUpdate: h.LastUpdate,
		Entries:    make(map[string][]benchmark.Entry, len(h.Entries)),
	}
	for suite, entries := range h.Entries {
		cp := make([]benchmark.Entry, len(entries))
		for i, e := range entries {
			cp[i] = e.Clone()
		}
		out.Entries[suite] = cp
	}
	return out
}
