package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ysicing/pulseguard/internal/models"
	"github.com/ysicing/pulseguard/internal/repository"
	schedrepo "github.com/ysicing/pulseguard/internal/repository/scheduler"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Monitor{},
		&models.Check{},
		&models.Availability{},
		&models.ScheduledTask{},
		&models.TaskExecution{},
	))
	return db
}

func newTestRunner(t *testing.T) (*Runner, *gorm.DB) {
	db := setupTestDB(t)
	runner := New(
		schedrepo.NewTaskRepository(db),
		schedrepo.NewExecutionRepository(db),
		repository.NewMonitorRepository(db),
		repository.NewCheckRepository(db),
		repository.NewAvailabilityRepository(db),
		90*24*time.Hour,
	)
	return runner, db
}

func TestEnsureTaskDefinitionIsIdempotent(t *testing.T) {
	runner, db := newTestRunner(t)
	ctx := context.Background()

	require.NoError(t, runner.ensureTaskDefinition(ctx, checkPurgeTaskName, "purge", "0 0 3 * * *"))
	require.NoError(t, runner.ensureTaskDefinition(ctx, checkPurgeTaskName, "purge", "0 0 3 * * *"))

	var count int64
	require.NoError(t, db.Model(&models.ScheduledTask{}).Where("name = ?", checkPurgeTaskName).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPurgeExpiredChecksRemovesOnlyStaleRows(t *testing.T) {
	runner, db := newTestRunner(t)
	ctx := context.Background()

	monitorID := uuid.New()
	stale := &models.Check{MonitorID: monitorID, Timestamp: time.Now().Add(-100 * 24 * time.Hour), Status: models.CheckStatusUp}
	fresh := &models.Check{MonitorID: monitorID, Timestamp: time.Now(), Status: models.CheckStatusUp}
	require.NoError(t, db.Create(stale).Error)
	require.NoError(t, db.Create(fresh).Error)

	summary, err := runner.purgeExpiredChecks(ctx)
	require.NoError(t, err)
	assert.Contains(t, summary, "purged 1")

	var remaining int64
	require.NoError(t, db.Model(&models.Check{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestRollUpAvailabilitySkipsMonitorsWithNoChecksInWindow(t *testing.T) {
	runner, db := newTestRunner(t)
	ctx := context.Background()

	monitor := &models.Monitor{Name: "idle", Protocol: models.ProtocolHTTP, Target: "https://example.com", IsActive: true}
	require.NoError(t, db.Create(monitor).Error)

	summary, err := runner.rollUpAvailability(ctx)
	require.NoError(t, err)
	assert.Contains(t, summary, "0/1")
}

func TestPurgeOldExecutionsRemovesOnlyStaleRows(t *testing.T) {
	runner, db := newTestRunner(t)
	ctx := context.Background()

	stale := &models.TaskExecution{
		TaskUID: "t1", TaskName: checkPurgeTaskName, ExecutionUID: uuid.New().String(),
		StartedAt: time.Now(), State: models.ExecutionStateSuccess,
	}
	require.NoError(t, db.Create(stale).Error)
	require.NoError(t, db.Model(stale).UpdateColumn("created_at", time.Now().Add(-40*24*time.Hour)).Error)

	fresh := &models.TaskExecution{
		TaskUID: "t1", TaskName: checkPurgeTaskName, ExecutionUID: uuid.New().String(),
		StartedAt: time.Now(), State: models.ExecutionStateSuccess,
	}
	require.NoError(t, db.Create(fresh).Error)

	summary, err := runner.purgeOldExecutions(ctx)
	require.NoError(t, err)
	assert.Contains(t, summary, "purged 1")

	var remaining int64
	require.NoError(t, db.Model(&models.TaskExecution{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestRunGuardedRecordsExecutionHistoryOnFailure(t *testing.T) {
	runner, db := newTestRunner(t)
	ctx := context.Background()

	require.NoError(t, runner.ensureTaskDefinition(ctx, checkPurgeTaskName, "purge", "0 0 3 * * *"))
	boom := assert.AnError
	runner.runGuarded(ctx, checkPurgeTaskName, func(ctx context.Context) (string, error) {
		return "", boom
	})

	task, err := runner.tasks.GetByName(ctx, checkPurgeTaskName)
	require.NoError(t, err)
	assert.Equal(t, int64(1), task.FailureExecutions)
	assert.Equal(t, boom.Error(), task.LastFailureError)

	var executions []models.TaskExecution
	require.NoError(t, db.Where("task_name = ?", checkPurgeTaskName).Find(&executions).Error)
	require.Len(t, executions, 1)
	assert.Equal(t, models.ExecutionStateFailure, executions[0].State)
}
