package scheduler

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ysicing/pulseguard/internal/models"
)

// ExecutionRepository persists the audit trail of every maintenance/probe
// job dispatch as a models.TaskExecution row (§4.D's execution-history
// expansion): one row per run, state machine pending -> running ->
// success/failure/timeout/cancelled/interrupted.
type ExecutionRepository interface {
	Create(ctx context.Context, execution *models.TaskExecution) error
	Update(ctx context.Context, execution *models.TaskExecution) error
	GetByID(ctx context.Context, id int64) (*models.TaskExecution, error)
	ListByTaskUID(ctx context.Context, taskUID string, limit, offset int) ([]*models.TaskExecution, error)

	// ListByState supports RecoverInterruptedExecutions: find every row a
	// prior process left running so a restart can close them out.
	ListByState(ctx context.Context, state models.ExecutionState, limit, offset int) ([]*models.TaskExecution, error)

	// DeleteOlderThan is the execution-history side of the same retention
	// discipline §3 applies to Check rows: without it this table grows
	// without bound.
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

type taskExecutionRepository struct {
	db *gorm.DB
}

func NewExecutionRepository(db *gorm.DB) ExecutionRepository {
	return &taskExecutionRepository{db: db}
}

func (r *taskExecutionRepository) Create(ctx context.Context, execution *models.TaskExecution) error {
	if err := execution.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(execution).Error; err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}
	return nil
}

func (r *taskExecutionRepository) Update(ctx context.Context, execution *models.TaskExecution) error {
	if err := execution.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := r.db.WithContext(ctx).Save(execution).Error; err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}
	return nil
}

func (r *taskExecutionRepository) GetByID(ctx context.Context, id int64) (*models.TaskExecution, error) {
	var execution models.TaskExecution
	if err := r.db.WithContext(ctx).First(&execution, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("execution not found: id=%d", id)
		}
		return nil, fmt.Errorf("failed to get execution: %w", err)
	}
	return &execution, nil
}

func (r *taskExecutionRepository) ListByTaskUID(ctx context.Context, taskUID string, limit, offset int) ([]*models.TaskExecution, error) {
	var executions []*models.TaskExecution
	query := r.db.WithContext(ctx).
		Where("task_uid = ?", taskUID).
		Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&executions).Error; err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	return executions, nil
}

func (r *taskExecutionRepository) ListByState(ctx context.Context, state models.ExecutionState, limit, offset int) ([]*models.TaskExecution, error) {
	var executions []*models.TaskExecution
	query := r.db.WithContext(ctx).
		Where("state = ?", state).
		Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&executions).Error; err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	return executions, nil
}

func (r *taskExecutionRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", before).
		Delete(&models.TaskExecution{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old executions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
