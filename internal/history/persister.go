package history

import (
	"context"
	"time"

	"benchtrack/internal/benchmark"
)

// AppendRecord is one accepted entry handed to a Persister.
type AppendRecord struct {
	RepoURL string
	Suite   string
	// Position is the entry's index in its suite, fixed once stored.
	Position   int
	Entry      benchmark.Entry
	LastUpdate time.Time
}

// Persister is the durable boundary of the Store. Append must be all-or-nothing
// and safe to call concurrently for different suites.
type Persister interface {
	Load(ctx context.Context) (benchmark.History, error)
	Append(ctx context.Context, rec AppendRecord) error
	Close() error
}

// Observer is notified after every newly stored entry, outside any store lock.
type Observer interface {
	Observe(ctx context.Context, res IngestResult)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, res IngestResult)

func (f ObserverFunc) Observe(ctx context.Context, res IngestResult) { f(ctx, res) }
