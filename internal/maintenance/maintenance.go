// Package maintenance runs the core's own periodic upkeep jobs — Check TTL
// expiry (§3: "Retained 90 days then expired by TTL") and Availability
// rollups consumed by the out-of-scope analytics collaborators (§1) — on a
// cron schedule, grounded on the teacher's robfig/cron/v3 usage in
// internal/services/scheduler/scheduler.go and internal/services/monitor/
// probe_scheduler.go's buildCronExpression pattern. Each run's definition is
// a models.ScheduledTask row (teacher's schedule-definition shape) and its
// history is a models.TaskExecution row through the same
// repository/scheduler.ExecutionRepository the probe scheduler already uses,
// so both tables serve real, observable work instead of sitting unwired.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ysicing/pulseguard/internal/models"
	"github.com/ysicing/pulseguard/internal/repository"
	schedrepo "github.com/ysicing/pulseguard/internal/repository/scheduler"
)

const (
	checkPurgeTaskName     = "check-retention-purge"
	availabilityTaskName   = "availability-rollup"
	executionPurgeTaskName = "execution-history-purge"
	executionHistoryRetain = 30 * 24 * time.Hour
)

// Runner owns the cron scheduler driving the core's own housekeeping, kept
// entirely separate from internal/scheduler's per-monitor probe queue: these
// jobs run once per process (no leader election needed, since a duplicate
// run is merely redundant work, not a correctness problem the way a
// duplicate probe would be).
type Runner struct {
	tasks        schedrepo.TaskRepository
	executions   schedrepo.ExecutionRepository
	monitors     repository.MonitorRepository
	checks       repository.CheckRepository
	availability repository.AvailabilityRepository

	retention time.Duration
	cron      *cron.Cron
}

// New creates a Runner. retention is the Check TTL (§3's 90-day default,
// overridable via config.MonitoringConfig.CheckRetentionDays).
func New(
	tasks schedrepo.TaskRepository,
	executions schedrepo.ExecutionRepository,
	monitors repository.MonitorRepository,
	checks repository.CheckRepository,
	availability repository.AvailabilityRepository,
	retention time.Duration,
) *Runner {
	return &Runner{
		tasks:        tasks,
		executions:   executions,
		monitors:     monitors,
		checks:       checks,
		availability: availability,
		retention:    retention,
		cron:         cron.New(cron.WithSeconds()),
	}
}

// Start ensures the three maintenance task definitions exist, registers their
// cron schedules, and starts the cron scheduler in its own goroutine.
func (r *Runner) Start(ctx context.Context) error {
	if err := r.ensureTaskDefinition(ctx, checkPurgeTaskName, "purge Check rows past the retention window", "0 0 3 * * *"); err != nil {
		return fmt.Errorf("maintenance: register %s: %w", checkPurgeTaskName, err)
	}
	if err := r.ensureTaskDefinition(ctx, availabilityTaskName, "roll up the last hour's Checks into an Availability row per active monitor", "0 5 * * * *"); err != nil {
		return fmt.Errorf("maintenance: register %s: %w", availabilityTaskName, err)
	}
	if err := r.ensureTaskDefinition(ctx, executionPurgeTaskName, "purge TaskExecution rows past their own retention window", "0 30 3 * * *"); err != nil {
		return fmt.Errorf("maintenance: register %s: %w", executionPurgeTaskName, err)
	}

	if _, err := r.cron.AddFunc("0 0 3 * * *", func() { r.runGuarded(context.Background(), checkPurgeTaskName, r.purgeExpiredChecks) }); err != nil {
		return fmt.Errorf("maintenance: schedule %s: %w", checkPurgeTaskName, err)
	}
	if _, err := r.cron.AddFunc("0 5 * * * *", func() { r.runGuarded(context.Background(), availabilityTaskName, r.rollUpAvailability) }); err != nil {
		return fmt.Errorf("maintenance: schedule %s: %w", availabilityTaskName, err)
	}
	if _, err := r.cron.AddFunc("0 30 3 * * *", func() { r.runGuarded(context.Background(), executionPurgeTaskName, r.purgeOldExecutions) }); err != nil {
		return fmt.Errorf("maintenance: schedule %s: %w", executionPurgeTaskName, err)
	}

	r.cron.Start()
	logrus.Info("maintenance: cron scheduler started")
	_ = ctx
	return nil
}

// Stop waits for any in-flight run to finish before returning, matching the
// teacher's cron.Stop() usage.
func (r *Runner) Stop() {
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	logrus.Info("maintenance: cron scheduler stopped")
}

func (r *Runner) ensureTaskDefinition(ctx context.Context, name, description, cronExpr string) error {
	if _, err := r.tasks.GetByName(ctx, name); err == nil {
		return nil
	}
	task := &models.ScheduledTask{
		UID:         uuid.New().String(),
		Name:        name,
		Type:        "maintenance",
		Description: description,
		IsRecurring: true,
		CronExpr:    cronExpr,
		Enabled:     true,
	}
	return r.tasks.Create(ctx, task)
}

// runGuarded wraps one maintenance run with the execution-history recording
// and counter bookkeeping the scheduler package already uses for probe
// jobs, so a maintenance run's health is visible the same way.
func (r *Runner) runGuarded(ctx context.Context, name string, fn func(ctx context.Context) (string, error)) {
	task, err := r.tasks.GetByName(ctx, name)
	if err != nil {
		logrus.Errorf("maintenance: load task definition %s: %v", name, err)
		return
	}

	now := time.Now()
	execution := &models.TaskExecution{
		TaskUID:      task.UID,
		TaskName:     name,
		TaskType:     task.Type,
		ExecutionUID: uuid.New().String(),
		RunBy:        "maintenance-runner",
		ScheduledAt:  now,
		StartedAt:    now,
		State:        models.ExecutionStateRunning,
		TriggerType:  "scheduled",
	}
	if err := r.executions.Create(ctx, execution); err != nil {
		logrus.Errorf("maintenance: create execution record for %s: %v", name, err)
	}

	result, runErr := fn(ctx)

	execution.FinishedAt = time.Now()
	execution.Result = result
	if runErr != nil {
		execution.State = models.ExecutionStateFailure
		execution.ErrorMessage = runErr.Error()
		task.SetLastFailure(runErr.Error())
	} else {
		execution.State = models.ExecutionStateSuccess
	}
	execution.UpdateDuration()
	if err := r.executions.Update(ctx, execution); err != nil {
		logrus.Errorf("maintenance: update execution record for %s: %v", name, err)
	}

	task.IncrementExecutions(runErr == nil)
	if err := r.tasks.Update(ctx, task); err != nil {
		logrus.Errorf("maintenance: update task counters for %s: %v", name, err)
	}

	if runErr != nil {
		logrus.Errorf("maintenance: %s failed: %v", name, runErr)
	} else {
		logrus.Debugf("maintenance: %s completed (%s)", name, result)
	}
}

func (r *Runner) purgeExpiredChecks(ctx context.Context) (string, error) {
	n, err := r.checks.PurgeExpired(ctx, r.retention)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("purged %d expired check(s)", n), nil
}

// purgeOldExecutions keeps the TaskExecution audit trail itself bounded:
// without this, every maintenance and probe-scheduler dispatch (§4.D's
// execution-history expansion) accumulates forever.
func (r *Runner) purgeOldExecutions(ctx context.Context) (string, error) {
	n, err := r.executions.DeleteOlderThan(ctx, time.Now().Add(-executionHistoryRetain))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("purged %d expired execution record(s)", n), nil
}

func (r *Runner) rollUpAvailability(ctx context.Context) (string, error) {
	monitors, err := r.monitors.ListActive(ctx)
	if err != nil {
		return "", err
	}
	end := time.Now().UTC().Truncate(time.Hour)
	start := end.Add(-time.Hour)

	rolled := 0
	for _, m := range monitors {
		a, err := r.availability.Calculate(ctx, m.ID, "1h", start, end)
		if err != nil {
			logrus.Warnf("maintenance: calculate availability for monitor %s: %v", m.ID, err)
			continue
		}
		if a.TotalChecks == 0 {
			continue
		}
		if err := r.availability.Save(ctx, a); err != nil {
			logrus.Warnf("maintenance: save availability for monitor %s: %v", m.ID, err)
			continue
		}
		rolled++
	}
	return fmt.Sprintf("rolled up availability for %d/%d active monitor(s)", rolled, len(monitors)), nil
}
