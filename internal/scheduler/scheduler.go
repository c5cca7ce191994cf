package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ysicing/pulseguard/internal/cache"
	"github.com/ysicing/pulseguard/internal/metrics"
	"github.com/ysicing/pulseguard/internal/models"
	"github.com/ysicing/pulseguard/internal/repository"
	execrepo "github.com/ysicing/pulseguard/internal/repository/scheduler"
)

const (
	// JobVisibilityBuffer pads a monitor's own probe timeout to derive the
	// job lease duration, so a job's lease never expires while the probe is
	// still legitimately running (§5).
	JobVisibilityBuffer = 5 * time.Second

	// MaxJobRetries bounds redelivery before a job is dead-lettered (§4.D).
	MaxJobRetries = 3

	// ManualCheckCooldown is runNow's default per-monitor rate limit (§4.D).
	ManualCheckCooldown = 30 * time.Second

	masterLockTTL        = 15 * time.Second
	masterLockRenewEvery = 5 * time.Second
	reconcileInterval    = 30 * time.Second
	dispatchPollInterval = 1 * time.Second
	dispatchBatchSize    = 20
)

// Scheduler drives the delayed-job queue: leadership-gated reconciliation
// of the active monitor set, and a dispatch loop (run by every instance)
// that claims due jobs and executes them through a JobHandler with
// panic-recovered, history-recorded execution, mirroring the teacher's
// Scheduler.triggerTask/executeTask shape.
type Scheduler struct {
	cache      *cache.Client
	queue      jobQueue
	monitors   repository.MonitorRepository
	executions execrepo.ExecutionRepository
	handler    JobHandler

	instanceID string

	stopCh chan struct{}
	wg     sync.WaitGroup

	isLeader atomic.Bool
	isReady  atomic.Bool
}

// New creates a Scheduler. handler is typically internal/worker's pipeline.
func New(c *cache.Client, monitors repository.MonitorRepository, executions execrepo.ExecutionRepository, handler JobHandler) *Scheduler {
	return &Scheduler{
		cache:      c,
		queue:      newQueue(c),
		monitors:   monitors,
		executions: executions,
		handler:    handler,
		instanceID: fmt.Sprintf("scheduler-%s", uuid.New().String()[:8]),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the leadership, reconciliation and dispatch loops.
func (s *Scheduler) Start(ctx context.Context) {
	if s.executions != nil {
		if err := s.recoverInterruptedExecutions(ctx); err != nil {
			logrus.Errorf("scheduler: recover interrupted executions: %v", err)
		}
	}

	s.wg.Add(3)
	go s.leadershipLoop(ctx)
	go s.reconcileLoop(ctx)
	go s.dispatchLoop(ctx)

	logrus.Infof("scheduler %s started", s.instanceID)
}

// Stop signals every loop to exit and waits for them, releasing the master
// lock first if this instance held it so another contender can take over
// without waiting out the TTL.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	if s.isLeader.Load() {
		if err := s.cache.ReleaseMasterLock(context.Background(), s.instanceID); err != nil {
			logrus.Warnf("scheduler: release master lock: %v", err)
		}
	}
	logrus.Infof("scheduler %s stopped", s.instanceID)
}

// IsReady reports whether the first reconciliation pass has completed.
func (s *Scheduler) IsReady() bool { return s.isReady.Load() }

// Stats exposes the §4.D health counters plus readiness.
func (s *Scheduler) Stats(ctx context.Context) (Stats, bool, error) {
	stats, err := s.queue.Stats(ctx)
	return stats, s.IsReady(), err
}

// ScheduleMonitor ensures exactly one pending job for monitor, delayed by
// its configured interval (§4.D Enqueue).
func (s *Scheduler) ScheduleMonitor(ctx context.Context, monitor *models.Monitor) error {
	delay := time.Duration(monitor.IntervalMinutes) * time.Minute
	if delay <= 0 {
		delay = 5 * time.Minute
	}
	return s.queue.Enqueue(ctx, monitor.ID, delay)
}

// RunNow enqueues an immediate, high-priority check for monitorID, subject
// to the manual-check cooldown. Returns false, nil if the cooldown is
// still active rather than an error.
func (s *Scheduler) RunNow(ctx context.Context, monitorID uuid.UUID) (bool, error) {
	ok, err := s.cache.TryManualCheckCooldown(ctx, monitorID.String(), ManualCheckCooldown)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := s.queue.EnqueueNow(ctx, monitorID); err != nil {
		return false, err
	}
	return true, nil
}

// Cancel removes every pending/active/dead-letter trace of monitorID,
// called on monitor deletion or deactivation (§4.D Cancellation).
func (s *Scheduler) Cancel(ctx context.Context, monitorID uuid.UUID) error {
	return s.queue.Cancel(ctx, monitorID)
}

func (s *Scheduler) leadershipLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(masterLockRenewEvery)
	defer ticker.Stop()

	for {
		if s.isLeader.Load() {
			ok, err := s.cache.RenewMasterLock(ctx, s.instanceID, masterLockTTL)
			if err != nil {
				logrus.Warnf("scheduler: renew master lock: %v", err)
			}
			s.isLeader.Store(ok)
		} else {
			ok, err := s.cache.AcquireMasterLock(ctx, s.instanceID, masterLockTTL)
			if err != nil {
				logrus.Warnf("scheduler: acquire master lock: %v", err)
			}
			if ok {
				logrus.Infof("scheduler %s became leader", s.instanceID)
			}
			s.isLeader.Store(ok)
		}
		if s.isLeader.Load() {
			metrics.SchedulerLeader.Set(1)
		} else {
			metrics.SchedulerLeader.Set(0)
		}

		select {
		case <-ticker.C:
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// reconcileLoop periodically reconciles the monitor table against the job
// queue: a monitor with no pending or active job (newly active, or one
// whose job vanished after exhausting its retries) gets scheduled, and it's
// the only loop that needs ListActive, so it is gated to the current leader
// (§4.D Leadership). It deliberately never re-schedules a monitor that
// already has a job on the queue — reconcileInterval (30s) is far shorter
// than the minimum 5-minute probe interval, so doing that unconditionally
// would push every monitor's due time into the future faster than it could
// ever elapse. Re-scheduling after a monitor's interval actually elapses is
// dispatch's job, done once per completed run.
func (s *Scheduler) reconcileLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	s.reconcile(ctx)

	for {
		select {
		case <-ticker.C:
			s.reconcile(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) reconcile(ctx context.Context) {
	if !s.isLeader.Load() {
		return
	}
	monitors, err := s.monitors.ListActive(ctx)
	if err != nil {
		logrus.Errorf("scheduler: reconcile: list active monitors: %v", err)
		return
	}
	for _, m := range monitors {
		exists, err := s.queue.Exists(ctx, m.ID)
		if err != nil {
			logrus.Errorf("scheduler: reconcile: check existing job for monitor %s: %v", m.ID, err)
			continue
		}
		if exists {
			continue
		}
		if err := s.ScheduleMonitor(ctx, m); err != nil {
			logrus.Errorf("scheduler: reconcile: schedule monitor %s: %v", m.ID, err)
		}
	}
	s.isReady.Store(true)
}

func (s *Scheduler) dispatchLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(dispatchPollInterval)
	defer ticker.Stop()

	for {
		if n, err := s.queue.ReclaimExpiredLeases(ctx); err != nil {
			logrus.Errorf("scheduler: reclaim expired leases: %v", err)
		} else if n > 0 {
			logrus.Warnf("scheduler: reclaimed %d expired job lease(s)", n)
		}

		ids, err := s.queue.ClaimReady(ctx, dispatchBatchSize, JobVisibilityBuffer)
		if err != nil {
			logrus.Errorf("scheduler: claim ready jobs: %v", err)
		}
		for _, id := range ids {
			s.dispatch(ctx, id)
		}

		select {
		case <-ticker.C:
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// dispatch executes one job through the handler with panic recovery and
// execution-history recording, then acks or fails it on the queue
// depending on the outcome — directly grounded on the teacher's
// triggerTask/executeTask pair. On success it also schedules the monitor's
// next job (§4.D Enqueue, §4.E step 8: "Ack the job and enqueue the next
// (unless the monitor is now inactive/deleted)"); on failure, queue.Fail
// already re-queues the job for immediate retry (or dead-letters it), so no
// separate reschedule is needed there.
func (s *Scheduler) dispatch(ctx context.Context, monitorID uuid.UUID) {
	execution := s.beginExecution(ctx, monitorID)

	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("scheduler: panic running monitor %s: %v\n%s", monitorID, r, debug.Stack())
			s.finishExecution(ctx, execution, models.ExecutionStateFailure, fmt.Sprintf("panic: %v", r), string(debug.Stack()))
			s.handleFailure(ctx, monitorID)
			metrics.JobsProcessed.WithLabelValues("panic").Inc()
		}
	}()

	err := s.handler.Run(ctx, monitorID)
	if err != nil {
		logrus.Errorf("scheduler: monitor %s job failed: %v", monitorID, err)
		s.finishExecution(ctx, execution, models.ExecutionStateFailure, "", err.Error())
		s.handleFailure(ctx, monitorID)
		metrics.JobsProcessed.WithLabelValues("failure").Inc()
		return
	}

	s.finishExecution(ctx, execution, models.ExecutionStateSuccess, "", "")
	if err := s.queue.Ack(ctx, monitorID); err != nil {
		logrus.Errorf("scheduler: ack monitor %s: %v", monitorID, err)
	}
	metrics.JobsProcessed.WithLabelValues("success").Inc()
	s.rescheduleNext(ctx, monitorID)
}

// rescheduleNext enqueues monitorID's next job at now+interval after a
// successfully processed run, unless the monitor has since been deleted or
// deactivated — in which case it is simply left off the queue rather than
// re-scheduled, matching §4.D Cancellation.
func (s *Scheduler) rescheduleNext(ctx context.Context, monitorID uuid.UUID) {
	monitor, err := s.monitors.GetByID(ctx, monitorID)
	if err != nil {
		logrus.Debugf("scheduler: monitor %s gone, not rescheduling: %v", monitorID, err)
		return
	}
	if !monitor.IsActive {
		return
	}
	if err := s.ScheduleMonitor(ctx, monitor); err != nil {
		logrus.Errorf("scheduler: reschedule monitor %s: %v", monitorID, err)
	}
}

func (s *Scheduler) handleFailure(ctx context.Context, monitorID uuid.UUID) {
	retryCount, deadLettered, err := s.queue.Fail(ctx, monitorID, MaxJobRetries)
	if err != nil {
		logrus.Errorf("scheduler: record failure for monitor %s: %v", monitorID, err)
		return
	}
	if deadLettered {
		logrus.Errorf("scheduler: monitor %s exhausted %d retries, dead-lettered", monitorID, retryCount)
	}
}

func (s *Scheduler) beginExecution(ctx context.Context, monitorID uuid.UUID) *models.TaskExecution {
	if s.executions == nil {
		return nil
	}
	now := time.Now()
	execution := &models.TaskExecution{
		TaskUID:      monitorID.String(),
		TaskName:     "monitor-probe",
		TaskType:     "monitor-probe",
		ExecutionUID: uuid.New().String(),
		RunBy:        s.instanceID,
		ScheduledAt:  now,
		StartedAt:    now,
		State:        models.ExecutionStateRunning,
		TriggerType:  "scheduled",
	}
	if err := s.executions.Create(ctx, execution); err != nil {
		logrus.Errorf("scheduler: create execution record for monitor %s: %v", monitorID, err)
		return nil
	}
	return execution
}

func (s *Scheduler) finishExecution(ctx context.Context, execution *models.TaskExecution, state models.ExecutionState, result, errMsg string) {
	if s.executions == nil || execution == nil {
		return
	}
	execution.FinishedAt = time.Now()
	execution.State = state
	execution.Result = result
	execution.ErrorMessage = errMsg
	execution.UpdateDuration()
	if err := s.executions.Update(ctx, execution); err != nil {
		logrus.Errorf("scheduler: update execution record %s: %v", execution.ExecutionUID, err)
	}
}

// recoverInterruptedExecutions closes out execution rows left "running" by
// an unclean shutdown, per the EXPANSION note on execution history.
func (s *Scheduler) recoverInterruptedExecutions(ctx context.Context) error {
	running, err := s.executions.ListByState(ctx, models.ExecutionStateRunning, 1000, 0)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, execution := range running {
		execution.State = models.ExecutionStateInterrupted
		execution.FinishedAt = now
		execution.ErrorMessage = "interrupted by process restart"
		execution.UpdateDuration()
		if err := s.executions.Update(ctx, execution); err != nil {
			logrus.Errorf("scheduler: mark execution %s interrupted: %v", execution.ExecutionUID, err)
		}
	}
	if len(running) > 0 {
		logrus.Warnf("scheduler: recovered %d interrupted execution(s)", len(running))
	}
	return nil
}
