package history

import (
	"context"
	"errors"
	"sync"

	"benchtrack/internal/benchmark"
)

// fakePersister keeps appended records in memory and can be told to fail.
type fakePersister struct {
	mu       sync.Mutex
	initial  benchmark.History
	records  []AppendRecord
	failNext bool
	loadErr  error
	closed   bool
}

var errDiskFull = errors.New("disk full")

func (f *fakePersister) Load(ctx context.Context) (benchmark.History, error) {
	if f.loadErr != nil {
		return benchmark.History{}, f.loadErr
	}
	return f.initial, nil
}

func (f *fakePersister) Append(ctx context.Context, rec AppendRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errDiskFull
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakePersister) Close() error {
	f.closed = true
	return nil
}

func (f *fakePersister) appended() []AppendRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]AppendRecord, len(f.records))
	copy(out, f.records)
	return out
}

func (f *fakePersister) failOnce() {
	f.mu.Lock()
	f.failNext = true
	f.mu.Unlock()
}
