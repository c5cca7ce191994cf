// Package scheduler is the persistent, retryable, delayed-job queue keyed by
// monitorId (§4.D), grounded on the teacher's internal/services/scheduler
// Scheduler/Task/panic-recovery/execution-history shape, re-targeted from an
// in-memory interval ticker onto a Redis-backed lease queue shared across
// every running instance.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobHandler executes one delivered job. Implemented by internal/worker and
// injected at construction, mirroring the teacher's Task interface.
type JobHandler interface {
	Run(ctx context.Context, monitorID uuid.UUID) error
}

// jobQueue is the delayed-job queue contract Scheduler drives. *queue (the
// Redis-backed implementation in queue.go) is the only production
// implementation; the interface exists so Scheduler's leadership/
// reconcile/dispatch decision logic can be tested against an in-memory
// fake without a live Redis.
type jobQueue interface {
	Enqueue(ctx context.Context, monitorID uuid.UUID, delay time.Duration) error
	EnqueueNow(ctx context.Context, monitorID uuid.UUID) error
	Cancel(ctx context.Context, monitorID uuid.UUID) error
	Exists(ctx context.Context, monitorID uuid.UUID) (bool, error)
	ClaimReady(ctx context.Context, max int64, leaseDuration time.Duration) ([]uuid.UUID, error)
	ReclaimExpiredLeases(ctx context.Context) (int, error)
	Ack(ctx context.Context, monitorID uuid.UUID) error
	Fail(ctx context.Context, monitorID uuid.UUID, maxRetries int64) (retryCount int64, deadLettered bool, err error)
	Stats(ctx context.Context) (Stats, error)
}
