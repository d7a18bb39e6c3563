// Package polling runs a task on a fixed interval until its context ends.
package polling

import (
	"context"
	"log/slog"
	"time"
)

// Poller calls a task on every tick.
type Poller struct {
	config *Config
	task   func(ctx context.Context)
	logger *slog.Logger
}

// NewPoller creates a new poller instance
func NewPoller(cfg *Config, task func(ctx context.Context)) *Poller {
	return &Poller{config: cfg, task: task, logger: slog.Default()}
}

// WithLogger sets the logger used for start and stop messages.
func (p *Poller) WithLogger(l *slog.Logger) *Poller {
	p.logger = l
	return p
}

// Start blocks, running the task once per interval, until ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.logger.Debug("starting poller", "interval", p.config.Interval)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("stopping poller")
			return
		case <-ticker.C:
			p.task(ctx)
		}
	}
}
