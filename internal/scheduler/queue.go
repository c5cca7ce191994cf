package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ysicing/pulseguard/internal/cache"
)

// Redis key suffixes for the three job-state sets. All three are sorted
// sets scored by a unix-millisecond timestamp: "pending" by due time,
// "active" by lease expiry, "dead" by the time a job exhausted its retries.
const (
	pendingSet = "scheduler:jobs:pending"
	activeSet  = "scheduler:jobs:active"
	deadSet    = "scheduler:jobs:dead"
	retryHash  = "scheduler:jobs:retries"
)

// queue is the low-level Redis job store. A monitorId is a member of at
// most one of pendingSet/activeSet/deadSet at a time.
type queue struct {
	c *cache.Client
}

func newQueue(c *cache.Client) *queue { return &queue{c: c} }

func nowMs() float64 { return float64(time.Now().UnixMilli()) }

// Enqueue schedules monitorID to become ready after delay, replacing any
// existing pending entry atomically (ZADD overwrites an existing member's
// score). If the job is currently active (leased to a worker), it is left
// alone — the running job's Ack/Fail will decide what happens next.
func (q *queue) Enqueue(ctx context.Context, monitorID uuid.UUID, delay time.Duration) error {
	due := nowMs() + float64(delay.Milliseconds())
	return q.c.Raw().ZAdd(ctx, q.c.Key(pendingSet), redis.Z{Score: due, Member: monitorID.String()}).Err()
}

// EnqueueNow makes monitorID immediately claimable, bypassing its interval
// delay (§4.D runNow).
func (q *queue) EnqueueNow(ctx context.Context, monitorID uuid.UUID) error {
	return q.c.Raw().ZAdd(ctx, q.c.Key(pendingSet), redis.Z{Score: nowMs(), Member: monitorID.String()}).Err()
}

// Exists reports whether monitorID already has a pending or active (leased)
// job, so a periodic reconciliation pass can skip scheduling a monitor that
// is already on the queue rather than clobbering its due time with a fresh
// full-interval delay (§4.D: re-scheduling replaces a pending job, it does
// not mean every reconcile tick re-delays every monitor).
func (q *queue) Exists(ctx context.Context, monitorID uuid.UUID) (bool, error) {
	id := monitorID.String()
	for _, set := range []string{pendingSet, activeSet} {
		_, err := q.c.Raw().ZScore(ctx, q.c.Key(set), id).Result()
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, redis.Nil) {
			return false, fmt.Errorf("scheduler: check existing job: %w", err)
		}
	}
	return false, nil
}

// Cancel removes monitorID from every job set, used on monitor deletion or
// deactivation to block further re-enqueues.
func (q *queue) Cancel(ctx context.Context, monitorID uuid.UUID) error {
	id := monitorID.String()
	pipe := q.c.Raw().Pipeline()
	pipe.ZRem(ctx, q.c.Key(pendingSet), id)
	pipe.ZRem(ctx, q.c.Key(activeSet), id)
	pipe.ZRem(ctx, q.c.Key(deadSet), id)
	pipe.HDel(ctx, q.c.Key(retryHash), id)
	_, err := pipe.Exec(ctx)
	return err
}

// ClaimReady moves up to max due jobs from pending into active, leasing
// each for leaseDuration, and returns their monitor IDs. Safe for
// concurrent callers: a job is only returned to one caller because the
// ZREM that removes it from pending succeeds for exactly one of them.
func (q *queue) ClaimReady(ctx context.Context, max int64, leaseDuration time.Duration) ([]uuid.UUID, error) {
	candidates, err := q.c.Raw().ZRangeByScore(ctx, q.c.Key(pendingSet), &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%f", nowMs()), Offset: 0, Count: max,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("scheduler: claim ready: %w", err)
	}

	lease := nowMs() + float64(leaseDuration.Milliseconds())
	var claimed []uuid.UUID
	for _, member := range candidates {
		removed, err := q.c.Raw().ZRem(ctx, q.c.Key(pendingSet), member).Result()
		if err != nil || removed == 0 {
			continue
		}
		id, err := uuid.Parse(member)
		if err != nil {
			continue
		}
		if err := q.c.Raw().ZAdd(ctx, q.c.Key(activeSet), redis.Z{Score: lease, Member: member}).Err(); err != nil {
			continue
		}
		claimed = append(claimed, id)
	}
	return claimed, nil
}

// ReclaimExpiredLeases moves active jobs whose lease has passed back into
// pending for immediate redelivery, covering a worker crash or a job that
// ran past its visibility timeout (§4.D, §5).
func (q *queue) ReclaimExpiredLeases(ctx context.Context) (int, error) {
	expired, err := q.c.Raw().ZRangeByScore(ctx, q.c.Key(activeSet), &redis.ZRangeBy{
		Min: "-inf", Max: fmt.Sprintf("%f", nowMs()),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scheduler: reclaim expired leases: %w", err)
	}
	n := 0
	for _, member := range expired {
		removed, err := q.c.Raw().ZRem(ctx, q.c.Key(activeSet), member).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := q.c.Raw().ZAdd(ctx, q.c.Key(pendingSet), redis.Z{Score: nowMs(), Member: member}).Err(); err != nil {
			continue
		}
		n++
	}
	return n, nil
}

// Ack marks monitorID's active job complete and clears its retry counter.
func (q *queue) Ack(ctx context.Context, monitorID uuid.UUID) error {
	id := monitorID.String()
	pipe := q.c.Raw().Pipeline()
	pipe.ZRem(ctx, q.c.Key(activeSet), id)
	pipe.HDel(ctx, q.c.Key(retryHash), id)
	_, err := pipe.Exec(ctx)
	return err
}

// Fail records a failed job execution. If the job has not exhausted
// maxRetries it is returned to pending for redelivery; otherwise it moves
// to the dead-letter set. Returns the retry count observed and whether the
// job was dead-lettered.
func (q *queue) Fail(ctx context.Context, monitorID uuid.UUID, maxRetries int64) (retryCount int64, deadLettered bool, err error) {
	id := monitorID.String()
	if err = q.c.Raw().ZRem(ctx, q.c.Key(activeSet), id).Err(); err != nil {
		return 0, false, err
	}

	retryCount, err = q.c.Raw().HIncrBy(ctx, q.c.Key(retryHash), id, 1).Result()
	if err != nil {
		return 0, false, err
	}

	if retryCount > maxRetries {
		pipe := q.c.Raw().Pipeline()
		pipe.ZAdd(ctx, q.c.Key(deadSet), redis.Z{Score: nowMs(), Member: id})
		pipe.HDel(ctx, q.c.Key(retryHash), id)
		if _, err = pipe.Exec(ctx); err != nil {
			return retryCount, false, err
		}
		return retryCount, true, nil
	}

	if err = q.c.Raw().ZAdd(ctx, q.c.Key(pendingSet), redis.Z{Score: nowMs(), Member: id}).Err(); err != nil {
		return retryCount, false, err
	}
	return retryCount, false, nil
}

// Stats reports the §4.D health counters.
type Stats struct {
	Waiting int64 // pending, due now
	Delayed int64 // pending, due in the future
	Active  int64
	Failed  int64 // dead-lettered
}

func (q *queue) Stats(ctx context.Context) (Stats, error) {
	now := fmt.Sprintf("%f", nowMs())

	waiting, err := q.c.Raw().ZCount(ctx, q.c.Key(pendingSet), "-inf", now).Result()
	if err != nil {
		return Stats{}, err
	}
	total, err := q.c.Raw().ZCard(ctx, q.c.Key(pendingSet)).Result()
	if err != nil {
		return Stats{}, err
	}
	active, err := q.c.Raw().ZCard(ctx, q.c.Key(activeSet)).Result()
	if err != nil {
		return Stats{}, err
	}
	failed, err := q.c.Raw().ZCard(ctx, q.c.Key(deadSet)).Result()
	if err != nil {
		return Stats{}, err
	}

	return Stats{Waiting: waiting, Delayed: total - waiting, Active: active, Failed: failed}, nil
}
