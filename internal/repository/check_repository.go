package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ysicing/pulseguard/internal/models"
)

// CheckRepository persists the append-only Check history (§3).
type CheckRepository interface {
	Create(ctx context.Context, c *models.Check) error
	ListByMonitor(ctx context.Context, monitorID uuid.UUID, start, end time.Time, limit int) ([]*models.Check, error)
	Latest(ctx context.Context, monitorID uuid.UUID) (*models.Check, error)

	// PurgeExpired deletes Check rows older than retention, implementing
	// §3's "Retained 90 days then expired".
	PurgeExpired(ctx context.Context, retention time.Duration) (int64, error)
}

type checkRepository struct {
	db *gorm.DB
}

// NewCheckRepository creates a CheckRepository.
func NewCheckRepository(db *gorm.DB) CheckRepository {
	return &checkRepository{db: db}
}

func (r *checkRepository) Create(ctx context.Context, c *models.Check) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *checkRepository) ListByMonitor(ctx context.Context, monitorID uuid.UUID, start, end time.Time, limit int) ([]*models.Check, error) {
	query := r.db.WithContext(ctx).Where("monitor_id = ?", monitorID)
	if !start.IsZero() && !end.IsZero() {
		query = query.Where("timestamp >= ? AND timestamp <= ?", start, end)
	}
	if limit <= 0 {
		limit = 100
	}
	var checks []*models.Check
	if err := query.Order("timestamp DESC").Limit(limit).Find(&checks).Error; err != nil {
		return nil, err
	}
	return checks, nil
}

func (r *checkRepository) Latest(ctx context.Context, monitorID uuid.UUID) (*models.Check, error) {
	var c models.Check
	if err := r.db.WithContext(ctx).
		Where("monitor_id = ?", monitorID).
		Order("timestamp DESC").
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *checkRepository) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	result := r.db.WithContext(ctx).Where("timestamp < ?", cutoff).Delete(&models.Check{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
