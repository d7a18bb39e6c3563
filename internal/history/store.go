// Package history is the aggregate root of the benchmark tracker: it owns every
// suite series of one repository, serialises ingestion per suite and answers
// queries from immutable snapshots.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/regression"
)

// IngestResult describes the outcome of one Ingest call.
type IngestResult struct {
	Suite    string          `json:"suite"`
	Entry    benchmark.Entry `json:"entry"`
	Position int             `json:"position"`
	// Created is true when this entry started a new suite.
	Created bool `json:"created"`
	// Duplicate is true when the entry was already stored; nothing changed.
	Duplicate bool              `json:"duplicate"`
	Report    regression.Report `json:"classification"`
	// RepoURL is the store's repository URL when the entry was ingested.
	RepoURL string `json:"-"`
}

// SuiteInfo summarises one suite.
type SuiteInfo struct {
	Name       string    `json:"name"`
	Entries    int       `json:"entries"`
	Metrics    []string  `json:"metrics"`
	LastUpdate time.Time `json:"lastUpdate"`
}

type suiteState struct {
	name string

	// mu serialises writers. Readers never take it.
	mu       sync.Mutex
	polarity map[string]benchmark.Polarity
	keys     map[benchmark.EntryKey]int

	// entries is republished after each append. Published prefixes are never written again.
	entries atomic.Pointer[[]benchmark.Entry]
}

func newSuiteState(name string) *suiteState {
	st := &suiteState{
		name:     name,
		polarity: make(map[string]benchmark.Polarity),
		keys:     make(map[benchmark.EntryKey]int),
	}
	empty := []benchmark.Entry{}
	st.entries.Store(&empty)
	return st
}

func (st *suiteState) snapshot() []benchmark.Entry {
	return *st.entries.Load()
}

// Store is the HistoryStore. It is safe for concurrent use.
type Store struct {
	persister Persister
	detector  *regression.Detector
	observers []Observer
	logger    *slog.Logger
	repoURL   string
	// fallbackURL is used when neither WithRepoURL nor the stored history sets one.
	fallbackURL string

	mu     sync.RWMutex
	suites map[string]*suiteState

	lastUpdate atomic.Int64 // epoch ms
}

// Option configures a Store.
type Option func(*Store)

// WithDetector sets the regression detector run after each ingestion.
func WithDetector(d *regression.Detector) Option {
	return func(s *Store) { s.detector = d }
}

// WithObserver registers an observer for newly stored entries.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithRepoURL overrides the repository URL loaded from storage.
func WithRepoURL(url string) Option {
	return func(s *Store) { s.repoURL = url }
}

// WithFallbackRepoURL sets the repository URL used when none is configured or stored.
func WithFallbackRepoURL(url string) Option {
	return func(s *Store) { s.fallbackURL = url }
}

// Open loads the aggregate from p and returns a ready Store.
func Open(ctx context.Context, p Persister, opts ...Option) (*Store, error) {
	s := &Store{
		persister: p,
		logger:    slog.Default(),
		suites:    make(map[string]*suiteState),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.detector == nil {
		s.detector = regression.NewDetector(regression.DefaultConfig())
	}

	h, err := p.Load(ctx)
	if err != nil {
		return nil, &benchmark.StorageError{Op: "load", Err: err}
	}
	if s.repoURL == "" {
		s.repoURL = h.RepoURL
	}
	if s.repoURL == "" {
		s.repoURL = s.fallbackURL
	}

	for name, entries := range h.Entries {
		st := newSuiteState(name)
		loaded := make([]benchmark.Entry, 0, len(entries))
		loaded = append(loaded, entries...)

		if !sort.SliceIsSorted(loaded, func(i, j int) bool { return loaded[i].RecordedAt.Before(loaded[j].RecordedAt) }) {
			s.logger.Warn("suite entries out of recorded order, sorting", "suite", name)
			sort.SliceStable(loaded, func(i, j int) bool { return loaded[i].RecordedAt.Before(loaded[j].RecordedAt) })
		}

		for i, e := range loaded {
			if _, dup := st.keys[e.Key()]; dup {
				s.logger.Warn("duplicate entry in stored history", "suite", name, "commit_id", e.Commit.ID, "recorded_at", e.RecordedAt)
			}
			st.keys[e.Key()] = i
			for _, smp := range e.Samples {
				if p, ok := st.polarity[smp.Name]; !ok {
					st.polarity[smp.Name] = e.Tool
				} else if p != e.Tool {
					s.logger.Warn("stored history has conflicting polarity, keeping the first",
						"suite", name, "metric", smp.Name, "kept", p.String(), "ignored", e.Tool.String())
				}
			}
		}
		st.entries.Store(&loaded)
		s.suites[name] = st
	}

	s.lastUpdate.Store(benchmark.ToMillis(h.MaxRecordedAt()))
	s.logger.Debug("history loaded", "suites", len(s.suites), "last_update", s.LastUpdate())
	return s, nil
}

// Close closes the persister.
func (s *Store) Close() error {
	return s.persister.Close()
}

// RepoURL returns the tracked repository URL.
func (s *Store) RepoURL() string { return s.repoURL }

// LastUpdate is the latest RecordedAt over every suite.
func (s *Store) LastUpdate() time.Time {
	return benchmark.FromMillis(s.lastUpdate.Load())
}

// Detector returns the detector used for classification.
func (s *Store) Detector() *regression.Detector { return s.detector }

func (s *Store) lookup(name string) *suiteState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.suites[name]
}

func (s *Store) lookupOrCreate(name string) *suiteState {
	if st := s.lookup(name); st != nil {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.suites[name]; ok {
		return st
	}
	st := newSuiteState(name)
	s.suites[name] = st
	return st
}

func (s *Store) bumpLastUpdate(t time.Time) {
	ms := benchmark.ToMillis(t)
	for {
		cur := s.lastUpdate.Load()
		if ms <= cur || s.lastUpdate.CompareAndSwap(cur, ms) {
			return
		}
	}
}

// Ingest validates entry, appends it to suite and persists it, then classifies it.
// Re-ingesting an entry with the same (commitId, recordedAt) and samples is a no-op.
// The append itself ignores ctx cancellation once started.
func (s *Store) Ingest(ctx context.Context, suite string, entry benchmark.Entry) (IngestResult, error) {
	if err := benchmark.Validate(suite, entry); err != nil {
		return IngestResult{}, err
	}
	entry = entry.Clone()
	// Stored dates are epoch ms; keep memory in step with what a reload returns.
	entry.RecordedAt = benchmark.FromMillis(benchmark.ToMillis(entry.RecordedAt))
	key := entry.Key()

	st := s.lookupOrCreate(suite)
	st.mu.Lock()
	current := st.snapshot()

	if pos, ok := st.keys[key]; ok {
		stored := current[pos]
		st.mu.Unlock()
		if !stored.SameSamples(entry) {
			return IngestResult{}, &benchmark.ValidationError{
				Suite:  suite,
				Field:  "commit.id",
				Reason: fmt.Sprintf("commit %s at %d is already recorded with different samples", key.CommitID, key.RecordedAt),
			}
		}
		s.logger.Debug("duplicate entry ignored", "suite", suite, "commit_id", key.CommitID, "recorded_at", entry.RecordedAt)
		series := benchmark.Series{Suite: suite, Entries: current}
		return IngestResult{
			Suite:     suite,
			Entry:     stored.Clone(),
			Position:  pos,
			Duplicate: true,
			Report:    s.detector.Evaluate(series, stored),
		}, nil
	}

	if n := len(current); n > 0 && entry.RecordedAt.Before(current[n-1].RecordedAt) {
		st.mu.Unlock()
		return IngestResult{}, &benchmark.ValidationError{
			Suite:  suite,
			Field:  "date",
			Reason: fmt.Sprintf("recorded at %s, before the latest entry (%s)", entry.RecordedAt.Format(time.RFC3339), current[n-1].RecordedAt.Format(time.RFC3339)),
		}
	}

	for _, smp := range entry.Samples {
		if p, ok := st.polarity[smp.Name]; ok && p != entry.Tool {
			st.mu.Unlock()
			return IngestResult{}, &benchmark.PolarityConflictError{Suite: suite, Metric: smp.Name, Established: p, Got: entry.Tool}
		}
	}

	lastUpdate := s.LastUpdate()
	if entry.RecordedAt.After(lastUpdate) {
		lastUpdate = entry.RecordedAt
	}
	rec := AppendRecord{
		RepoURL:    s.repoURL,
		Suite:      suite,
		Position:   len(current),
		Entry:      entry,
		LastUpdate: lastUpdate,
	}
	if err := s.persister.Append(context.WithoutCancel(ctx), rec); err != nil {
		st.mu.Unlock()
		s.logger.Error("failed to persist entry", "suite", suite, "commit_id", key.CommitID, "error", err)
		return IngestResult{}, &benchmark.StorageError{Op: "append", Err: err}
	}

	next := append(current, entry)
	st.entries.Store(&next)
	st.keys[key] = rec.Position
	for _, smp := range entry.Samples {
		st.polarity[smp.Name] = entry.Tool
	}
	s.bumpLastUpdate(entry.RecordedAt)
	st.mu.Unlock()

	res := IngestResult{
		Suite:    suite,
		Entry:    entry.Clone(),
		Position: rec.Position,
		Created:  rec.Position == 0,
		Report:   s.detector.Evaluate(benchmark.Series{Suite: suite, Entries: next}, entry),
		RepoURL:  s.repoURL,
	}

	logArgs := []any{"suite", suite, "commit_id", key.CommitID, "position", res.Position,
		"regressed", res.Report.Count(regression.Regressed), "improved", res.Report.Count(regression.Improved)}
	if res.Report.Alert {
		s.logger.Warn("benchmark regression detected", logArgs...)
	} else {
		s.logger.Info("benchmark entry ingested", logArgs...)
	}

	for _, o := range s.observers {
		o.Observe(ctx, res)
	}
	return res, nil
}

// Latest returns the most recently ingested entry of suite.
func (s *Store) Latest(suite string) (benchmark.Entry, bool) {
	st := s.lookup(suite)
	if st == nil {
		return benchmark.Entry{}, false
	}
	entries := st.snapshot()
	if len(entries) == 0 {
		return benchmark.Entry{}, false
	}
	return entries[len(entries)-1].Clone(), true
}

// Series returns a copy of the suite's series.
func (s *Store) Series(suite string) (benchmark.Series, bool) {
	st := s.lookup(suite)
	if st == nil {
		return benchmark.Series{}, false
	}
	entries := st.snapshot()
	if len(entries) == 0 {
		return benchmark.Series{}, false
	}
	return benchmark.Series{Suite: suite, Entries: cloneEntries(entries)}, true
}

// Classify re-runs detection for a stored entry: the latest entry of commitID,
// or the latest entry of the suite when commitID is empty.
func (s *Store) Classify(suite, commitID string) (regression.Report, bool) {
	st := s.lookup(suite)
	if st == nil {
		return regression.Report{}, false
	}
	entries := st.snapshot()
	for i := len(entries) - 1; i >= 0; i-- {
		if commitID == "" || entries[i].Commit.ID == commitID {
			series := benchmark.Series{Suite: suite, Entries: entries}
			return s.detector.Evaluate(series, entries[i]), true
		}
	}
	return regression.Report{}, false
}

// Suites lists every non-empty suite by name.
func (s *Store) Suites() []SuiteInfo {
	s.mu.RLock()
	states := make([]*suiteState, 0, len(s.suites))
	for _, st := range s.suites {
		states = append(states, st)
	}
	s.mu.RUnlock()

	infos := make([]SuiteInfo, 0, len(states))
	for _, st := range states {
		entries := st.snapshot()
		if len(entries) == 0 {
			continue
		}
		seen := make(map[string]struct{})
		var metrics []string
		for _, e := range entries {
			for _, smp := range e.Samples {
				if _, ok := seen[smp.Name]; !ok {
					seen[smp.Name] = struct{}{}
					metrics = append(metrics, smp.Name)
				}
			}
		}
		infos = append(infos, SuiteInfo{
			Name:       st.name,
			Entries:    len(entries),
			Metrics:    metrics,
			LastUpdate: entries[len(entries)-1].RecordedAt,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Snapshot returns a deep copy of the whole aggregate in its persisted shape.
func (s *Store) Snapshot() benchmark.History {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := benchmark.History{
		RepoURL: s.repoURL,
		Entries: make(map[string][]benchmark.Entry, len(s.suites)),
	}
	for name, st := range s.suites {
		entries := st.snapshot()
		if len(entries) == 0 {
			continue
		}
		h.Entries[name] = cloneEntries(entries)
	}
	h.LastUpdate = h.MaxRecordedAt()
	return h
}

func cloneEntries(entries []benchmark.Entry) []benchmark.Entry {
	out := make([]benchmark.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}
