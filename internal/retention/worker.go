// Package retention prunes old contact messages from the local inbox.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Pruner abstracts the inbox delete operation.
type Pruner interface {
	DeleteContactMessagesBefore(ctx context.Context, t time.Time) (int64, error)
}

// Worker deletes inbox entries older than the retention window on every poll.
type Worker struct {
	store     Pruner
	retention time.Duration
	poll      time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
}

// NewWorker creates a Worker keeping entries younger than retention.
// If pollInterval is <= 0, it defaults to one hour.
func NewWorker(store Pruner, retention, pollInterval time.Duration, clock clockwork.Clock) *Worker {
	if pollInterval <= 0 {
		pollInterval = time.Hour
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Worker{
		store:     store,
		retention: retention,
		poll:      pollInterval,
		clock:     clock,
		logger:    slog.Default(),
	}
}

// Enabled reports whether the worker has anything to do. A zero or
// negative retention keeps messages forever.
func (w *Worker) Enabled() bool {
	return w.retention > 0
}

// Run prunes immediately and then on every poll until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if !w.Enabled() {
		return
	}

	ticker := w.clock.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error("retention pass failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}

// RunOnce deletes every entry created before now minus the retention
// window and returns how many were removed.
func (w *Worker) RunOnce(ctx context.Context) (int64, error) {
	if !w.Enabled() {
		return 0, nil
	}
	cutoff := w.clock.Now().Add(-w.retention)
	n, err := w.store.DeleteContactMessagesBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning messages before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if n > 0 {
		w.logger.Info("pruned contact messages", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return n, nil
}
