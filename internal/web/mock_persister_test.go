package web

import (
	"context"
	"errors"
	"sync"

	"benchtrack/internal/db"
	"benchtrack/internal/history"
)

var errDiskFull = errors.New("no space left on device")

// flakyPersister is a memory store whose next append can be made to fail.
type flakyPersister struct {
	*db.MemoryStore

	mu       sync.Mutex
	failNext bool
}

func (p *flakyPersister) failOnce() {
	p.mu.Lock()
	p.failNext = true
	p.mu.Unlock()
}

func (p *flakyPersister) Append(ctx context.Context, rec history.AppendRecord) error {
	p.mu.Lock()
	fail := p.failNext
	p.failNext = false
	p.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return p.MemoryStore.Append(ctx, rec)
}
