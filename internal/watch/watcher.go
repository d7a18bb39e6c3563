// Package watch ingests benchmark entries dropped as JSON files into a directory.
//
// A drop file holds {"suite": "...", "entry": {...}} or {"suite": "...", "entries": [...]}.
// When suite is omitted the file name without extension is used. Accepted files
// are moved to processed/, rejected ones to failed/ next to a .err file with the
// reason. Files that hit a storage error stay in place and are retried.
// Entries without a date are stamped from the file's modification time.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"benchtrack/internal/benchmark"
	"benchtrack/internal/history"
	"benchtrack/internal/polling"
)

const (
	processedDir = "processed"
	failedDir    = "failed"
)

// Ingester is the part of the history store the watcher needs.
type Ingester interface {
	Ingest(ctx context.Context, suite string, entry benchmark.Entry) (history.IngestResult, error)
}

// Drop is the content of one drop file.
type Drop struct {
	Suite   string            `json:"suite"`
	Entry   *benchmark.Entry  `json:"entry,omitempty"`
	Entries []benchmark.Entry `json:"entries,omitempty"`
}

func (d Drop) all() []benchmark.Entry {
	if d.Entry == nil {
		return d.Entries
	}
	return append([]benchmark.Entry{*d.Entry}, d.Entries...)
}

// Config configures a Watcher.
type Config struct {
	Dir string

	// Interval is how often the directory is rescanned to pick up files whose
	// events were missed and retry storage failures. Zero disables rescans.
	Interval time.Duration

	// Debounce delays processing after the last event for a file.
	Debounce time.Duration
}

// Outcome is what happened to one drop file.
type Outcome struct {
	Path     string
	Suite    string
	Ingested int
	Dupes    int
	Err      error
}

// Watcher turns files in Config.Dir into Ingest calls.
type Watcher struct {
	cfg    Config
	store  Ingester
	logger *slog.Logger
	now    func() time.Time

	// mu serialises processing so events and rescans never handle a file twice at once.
	mu sync.Mutex

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	// OnProcessed, when set, is called after each file is handled.
	OnProcessed func(Outcome)
}

// New creates the drop directory and its processed/ and failed/ subdirectories.
func New(cfg Config, store Ingester, logger *slog.Logger) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, dir := range []string{cfg.Dir, filepath.Join(cfg.Dir, processedDir), filepath.Join(cfg.Dir, failedDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &Watcher{
		cfg:    cfg,
		store:  store,
		logger: logger.With("component", "watch", "dir", cfg.Dir),
		now:    time.Now,
		timers: make(map[string]*time.Timer),
	}, nil
}

// Run processes files already present, then watches for new ones until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.cfg.Dir, err)
	}
	w.logger.Info("Watching for benchmark drops")

	w.Scan(ctx)

	var wg sync.WaitGroup
	if w.cfg.Interval > 0 {
		poller := polling.NewPoller(&polling.Config{Interval: w.cfg.Interval}, w.Scan).WithLogger(w.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			poller.Start(ctx)
		}()
	}
	defer func() {
		w.stopTimers()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !isDropFile(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	if w.cfg.Debounce <= 0 {
		w.Process(ctx, path)
		return
	}

	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	if t, exists := w.timers[path]; exists {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.cfg.Debounce, func() {
		w.Process(ctx, path)
		w.timersMu.Lock()
		if w.timers[path] == t {
			delete(w.timers, path)
		}
		w.timersMu.Unlock()
	})
	w.timers[path] = t
}

func (w *Watcher) stopTimers() {
	w.timersMu.Lock()
	defer w.timersMu.Unlock()
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}

// Scan processes every drop file currently in the directory, oldest name first.
func (w *Watcher) Scan(ctx context.Context) {
	entries, err := os.ReadDir(w.cfg.Dir)
	if err != nil {
		w.logger.Warn("Failed to scan drop directory", "error", err)
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		path := filepath.Join(w.cfg.Dir, e.Name())
		if e.IsDir() || !isDropFile(path) {
			continue
		}
		w.Process(ctx, path)
	}
}

func isDropFile(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".json")
}

// Process ingests one drop file and moves it according to the outcome.
func (w *Watcher) Process(ctx context.Context, path string) Outcome {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := Outcome{Path: path}
	drop, modTime, err := readDrop(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// already handled by an earlier event
		return out
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		// still being written; the next event or rescan picks it up
		w.logger.Debug("Drop file incomplete, waiting", "file", path)
		return out
	case err != nil:
		out.Err = err
		w.reject(out)
		return w.done(out)
	}

	out.Suite = drop.Suite
	if out.Suite == "" {
		out.Suite = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	entries := drop.all()
	if len(entries) == 0 {
		out.Err = &benchmark.ValidationError{Suite: out.Suite, Field: "entry", Reason: "drop file holds no entries"}
		w.reject(out)
		return w.done(out)
	}

	// Undated entries take the file's mtime, one millisecond apart, so a
	// retried file yields the same keys and stored entries come back as duplicates.
	stamp := modTime.UTC().Truncate(time.Millisecond)
	for i, e := range entries {
		if e.RecordedAt.IsZero() {
			e.RecordedAt = stamp.Add(time.Duration(i) * time.Millisecond)
		}
		res, err := w.store.Ingest(ctx, out.Suite, e)
		if err != nil {
			out.Err = err
			break
		}
		if res.Duplicate {
			out.Dupes++
		} else {
			out.Ingested++
		}
	}

	switch {
	case out.Err == nil:
		w.move(path, processedDir)
		w.logger.Info("Drop file ingested", "file", filepath.Base(path), "suite", out.Suite,
			"ingested", out.Ingested, "duplicates", out.Dupes)
	case errors.Is(out.Err, benchmark.ErrStorage):
		// entries already stored are duplicates on retry
		w.logger.Error("Drop file not stored, will retry", "file", filepath.Base(path), "suite", out.Suite, "error", out.Err)
	default:
		w.reject(out)
	}
	return w.done(out)
}

func (w *Watcher) done(out Outcome) Outcome {
	if w.OnProcessed != nil {
		w.OnProcessed(out)
	}
	return out
}

func readDrop(path string) (Drop, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return Drop{}, time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Drop{}, time.Time{}, err
	}

	var d Drop
	if err := json.NewDecoder(f).Decode(&d); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Drop{}, time.Time{}, err
		}
		return Drop{}, time.Time{}, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return d, info.ModTime(), nil
}

func (w *Watcher) reject(out Outcome) {
	w.logger.Warn("Drop file rejected", "file", filepath.Base(out.Path), "suite", out.Suite,
		"ingested", out.Ingested, "error", out.Err)
	dest := w.move(out.Path, failedDir)
	if dest == "" {
		return
	}
	if err := os.WriteFile(dest+".err", []byte(out.Err.Error()+"\n"), 0644); err != nil {
		w.logger.Warn("Failed to write rejection reason", "file", dest, "error", err)
	}
}

// move renames path into sub, adding a timestamp when the name is taken.
func (w *Watcher) move(path, sub string) string {
	base := filepath.Base(path)
	dest := filepath.Join(w.cfg.Dir, sub, base)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(base)
		dest = filepath.Join(w.cfg.Dir, sub,
			fmt.Sprintf("%s-%d%s", strings.TrimSuffix(base, ext), w.now().UnixNano(), ext))
	}
	if err := os.Rename(path, dest); err != nil {
		w.logger.Error("Failed to move drop file", "file", path, "to", dest, "error", err)
		return ""
	}
	return dest
}
