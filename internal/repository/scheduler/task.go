package scheduler

import (
	"context"

	"gorm.io/gorm"

	"github.com/ysicing/pulseguard/internal/models"
)

// TaskRepository defines the interface for scheduled task data access. Only
// the lookups the maintenance runner's idempotent registration and
// execution-guard loop actually needs are kept here (see
// internal/maintenance.Runner.ensureTaskDefinition/runGuarded).
type TaskRepository interface {
	Create(ctx context.Context, task *models.ScheduledTask) error
	Update(ctx context.Context, task *models.ScheduledTask) error
	GetByName(ctx context.Context, name string) (*models.ScheduledTask, error)
}

// taskRepository implements TaskRepository interface
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository instance
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{
		db: db,
	}
}

// Create creates a new scheduled task
func (r *taskRepository) Create(ctx context.Context, task *models.ScheduledTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// Update updates an existing scheduled task
func (r *taskRepository) Update(ctx context.Context, task *models.ScheduledTask) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// Delete deletes a scheduled task by UID
func (r *taskRepository) Delete(ctx context.Context, uid string) error {
	return r.db.WithContext(ctx).
		Where("uid = ?", uid).
		Delete(&models.ScheduledTask{}).Error
}

// GetByUID retrieves a scheduled task by UID
func (r *taskRepository) GetByUID(ctx context.Context, uid string) (*models.ScheduledTask, error) {
	var task models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("uid = ?", uid).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetByName retrieves a scheduled task by name
func (r *taskRepository) GetByName(ctx context.Context, name string) (*models.ScheduledTask, error) {
	var task models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}
