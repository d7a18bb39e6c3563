package notify

import (
	"context"

	"benchtrack/internal/regression"
)

// Alert is a regression report ready to be sent.
type Alert struct {
	RepoURL string
	Report  regression.Report
}

// Notifier delivers alerts to one destination.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert Alert) error
}
