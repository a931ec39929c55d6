package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
)

// DefaultReconcileInterval is used when no interval is configured.
const DefaultReconcileInterval = 5 * time.Minute

// StatusReconciler periodically persists the completed status of published
// events whose datetime has passed, so stored statuses do not depend on
// someone reading the event.
type StatusReconciler struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Now defaults to time.Now.
	Now func() time.Time

	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewStatusReconciler creates a reconciler. A non-positive interval means
// DefaultReconcileInterval.
func NewStatusReconciler(st store.Store, logger *slog.Logger, interval time.Duration) *StatusReconciler {
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}

	return &StatusReconciler{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the reconciler in the background until Stop is called.
func (r *StatusReconciler) Start() {
	r.started = true
	go r.run()
	r.Logger.Info("status reconciler started", "interval", r.Interval)
}

// Stop blocks until an in-flight pass has finished. It is a no-op on a
// reconciler that was never started.
func (r *StatusReconciler) Stop() {
	if !r.started {
		return
	}
	close(r.stopCh)
	<-r.doneCh
	r.Logger.Info("status reconciler stopped")
}

func (r *StatusReconciler) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	r.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			r.RunOnce(context.Background())
		case <-r.stopCh:
			return
		}
	}
}

// RunOnce completes every elapsed published event and returns how many
// changed.
func (r *StatusReconciler) RunOnce(ctx context.Context) int64 {
	now := time.Now().UTC()
	if r.Now != nil {
		now = r.Now().UTC()
	}

	n, err := r.Store.Events().CompleteElapsed(ctx, now)
	if err != nil {
		r.Logger.Error("status reconciliation failed", "error", err)
		return 0
	}
	if n > 0 {
		r.Logger.Info("completed elapsed events", "count", n)
	} else {
		r.Logger.Debug("no elapsed events to complete")
	}
	return n
}
