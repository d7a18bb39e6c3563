package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/history"
	"benchtrack/internal/polling"
)

const (
	badgerMetaKey     = "meta"
	badgerEntryPrefix = "entry/"

	maxConflictRetries = 8
)

// BadgerConfig configures the Badger persister.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in memory. For tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Logger receives Badger's internal logs. Nil disables them.
	Logger *slog.Logger

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration

	GCDiscardRatio float64
}

// DefaultBadgerConfig returns production defaults for path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryBadgerConfig returns a config for an ephemeral database.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

type badgerMeta struct {
	RepoURL    string `json:"repoUrl"`
	LastUpdate int64  `json:"lastUpdate"`
}

type badgerRecord struct {
	Suite    string          `json:"suite"`
	Position int             `json:"position"`
	Entry    benchmark.Entry `json:"entry"`
}

// BadgerStore persists history in an embedded Badger key-value store. Each entry
// is one key, so an append writes a single small transaction.
type BadgerStore struct {
	db     *badger.DB
	cancel context.CancelFunc
	done   chan struct{}
}

// NewBadgerStore opens the database and starts value log GC if configured.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &BadgerStore{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.done = make(chan struct{})
		poller := polling.NewPoller(polling.NewConfig("BENCHTRACK_BADGER_GC_INTERVAL", cfg.GCInterval), func(ctx context.Context) {
			s.runGC(cfg.GCDiscardRatio, cfg.Logger)
		})
		go func() {
			defer close(s.done)
			poller.Start(ctx)
		}()
	}
	return s, nil
}

func (s *BadgerStore) runGC(ratio float64, logger *slog.Logger) {
	err := s.db.RunValueLogGC(ratio)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) && logger != nil {
		logger.Warn("badger value log GC error", slog.String("error", err.Error()))
	}
}

func entryKey(suite string, position int) []byte {
	return fmt.Appendf(nil, "%s%s/%010d", badgerEntryPrefix, suite, position)
}

func (s *BadgerStore) Load(ctx context.Context) (benchmark.History, error) {
	h := benchmark.History{Entries: make(map[string][]benchmark.Entry)}
	positions := make(map[string][]int)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerMetaKey))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			var meta badgerMeta
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &meta) }); err != nil {
				return fmt.Errorf("decode repository meta: %w", err)
			}
			h.RepoURL = meta.RepoURL
			h.LastUpdate = benchmark.FromMillis(meta.LastUpdate)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerEntryPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec badgerRecord
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			h.Entries[rec.Suite] = append(h.Entries[rec.Suite], rec.Entry)
			positions[rec.Suite] = append(positions[rec.Suite], rec.Position)
		}
		return nil
	})
	if err != nil {
		return benchmark.History{}, fmt.Errorf("badger: load: %w", err)
	}

	// keys sort by suite then zero-padded position, but suites sharing a
	// prefix interleave; order each suite by position explicitly
	for suite, entries := range h.Entries {
		pos := positions[suite]
		sort.Sort(byPosition{entries: entries, pos: pos})
	}
	return h, nil
}

type byPosition struct {
	entries []benchmark.Entry
	pos     []int
}

func (b byPosition) Len() int           { return len(b.entries) }
func (b byPosition) Less(i, j int) bool { return b.pos[i] < b.pos[j] }
func (b byPosition) Swap(i, j int) {
	b.entries[i], b.entries[j] = b.entries[j], b.entries[i]
	b.pos[i], b.pos[j] = b.pos[j], b.pos[i]
}

func (s *BadgerStore) Append(ctx context.Context, rec history.AppendRecord) error {
	value, err := json.Marshal(badgerRecord{Suite: rec.Suite, Position: rec.Position, Entry: rec.Entry})
	if err != nil {
		return fmt.Errorf("badger: encode entry: %w", err)
	}

	update := func(txn *badger.Txn) error {
		key := entryKey(rec.Suite, rec.Position)
		if _, err := txn.Get(key); err == nil {
			return fmt.Errorf("suite %q already has an entry at position %d", rec.Suite, rec.Position)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, value); err != nil {
			return err
		}

		meta := badgerMeta{RepoURL: rec.RepoURL, LastUpdate: benchmark.ToMillis(rec.LastUpdate)}
		if item, err := txn.Get([]byte(badgerMetaKey)); err == nil {
			var prev badgerMeta
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &prev) }); err == nil {
				if prev.LastUpdate > meta.LastUpdate {
					meta.LastUpdate = prev.LastUpdate
				}
				if meta.RepoURL == "" {
					meta.RepoURL = prev.RepoURL
				}
			}
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return txn.Set([]byte(badgerMetaKey), data)
	}

	// appends to different suites race on the meta key
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = s.db.Update(update); !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("badger: append: %w", err)
	}
	return nil
}

// Close stops GC and closes the database.
func (s *BadgerStore) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return s.db.Close()
}
