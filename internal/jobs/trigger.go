package jobs

import (
	"context"
	"time"

	"jfrhub/pkg/logger"
)

// SchedulerTrigger requests an immediate run of the job it is bound to,
// instead of waiting for the next periodic tick. Used after replicating new
// events and after session deletion so callers observe the effect promptly.
type SchedulerTrigger struct {
	requests chan chan struct{}
}

// NewSchedulerTrigger creates a trigger
func NewSchedulerTrigger() *SchedulerTrigger {
	return &SchedulerTrigger{requests: make(chan chan struct{}, 4)}
}

// Requests retrieves the channel the job manager consumes. Each received
// value is closed once the triggered run completed.
func (t *SchedulerTrigger) Requests() <-chan chan struct{} {
	return t.requests
}

// Execute requests an immediate run and waits at most bound for it to finish.
// A stalled or busy job does not stall the caller: on timeout the request is
// logged and left to complete in the background.
func (t *SchedulerTrigger) Execute(ctx context.Context, bound time.Duration) {
	done := make(chan struct{})
	timer := time.NewTimer(bound)
	defer timer.Stop()

	select {
	case t.requests <- done:
	case <-timer.C:
		logger.WarnCtx(ctx, "scheduler trigger not picked up within %v", bound)
		return
	case <-ctx.Done():
		return
	}

	select {
	case <-done:
	case <-timer.C:
		logger.WarnCtx(ctx, "triggered run still in progress after %v, not waiting", bound)
	case <-ctx.Done():
	}
}
