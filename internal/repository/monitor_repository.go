// Package repository provides gorm-backed persistence for the monitoring
// domain (§3, §6), grounded on the teacher's internal/repository/
// service_repository.go: cascade-delete wrapped in a transaction, upsert
// via Where().Assign().FirstOrCreate() for periodic rollups.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ysicing/pulseguard/internal/models"
)

// MonitorFilter narrows MonitorRepository.List.
type MonitorFilter struct {
	OwnerID  *uuid.UUID
	Protocol models.Protocol
	IsActive *bool
	Page     int
	PageSize int
}

// MonitorRepository persists Monitor configuration and the runtime counters
// the Worker updates atomically on every probe cycle.
type MonitorRepository interface {
	Create(ctx context.Context, m *models.Monitor) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Monitor, error)
	List(ctx context.Context, filter MonitorFilter) ([]*models.Monitor, int64, error)
	ListActive(ctx context.Context) ([]*models.Monitor, error)
	Update(ctx context.Context, m *models.Monitor) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ApplyCheckOutcome performs the Worker's "inside one atomic update"
	// step (§4.E, step 4): increments totalChecks, conditionally increments
	// successfulChecks, and replaces the consecutive counters and derived
	// status in a single UPDATE so two concurrent readers never observe a
	// half-applied counter set.
	ApplyCheckOutcome(ctx context.Context, id uuid.UUID, outcome CheckOutcome) error
}

// CheckOutcome is the set of columns ApplyCheckOutcome writes atomically.
type CheckOutcome struct {
	Status               models.MonitorStatus
	CountsAsSuccess      bool
	ConsecutiveFailures  int
	ConsecutiveDegraded  int
	ConsecutiveSlowCount int
	ConsecutiveSuccesses int
	LastResponseTimeMs   int
}

type monitorRepository struct {
	db *gorm.DB
}

// NewMonitorRepository creates a MonitorRepository.
func NewMonitorRepository(db *gorm.DB) MonitorRepository {
	return &monitorRepository{db: db}
}

func (r *monitorRepository) Create(ctx context.Context, m *models.Monitor) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *monitorRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Monitor, error) {
	var m models.Monitor
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *monitorRepository) List(ctx context.Context, filter MonitorFilter) ([]*models.Monitor, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Monitor{})

	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.Protocol != "" {
		query = query.Where("protocol = ?", filter.Protocol)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if filter.PageSize > 200 {
		filter.PageSize = 200
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.PageSize

	var monitors []*models.Monitor
	if err := query.Order("created_at DESC").Offset(offset).Limit(filter.PageSize).Find(&monitors).Error; err != nil {
		return nil, 0, err
	}
	return monitors, total, nil
}

// ListActive returns every monitor eligible for scheduling, used by the
// scheduler's reconciliation pass (§4.D).
func (r *monitorRepository) ListActive(ctx context.Context) ([]*models.Monitor, error) {
	var monitors []*models.Monitor
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Find(&monitors).Error; err != nil {
		return nil, err
	}
	return monitors, nil
}

func (r *monitorRepository) Update(ctx context.Context, m *models.Monitor) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// Delete cascades Check, Incident, Availability and AlertRule rows for the
// monitor inside one transaction, matching the teacher's Delete pattern.
func (r *monitorRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("monitor_id = ?", id).Delete(&models.Check{}).Error; err != nil {
			return err
		}
		if err := tx.Where("monitor_id = ?", id).Delete(&models.Incident{}).Error; err != nil {
			return err
		}
		if err := tx.Where("monitor_id = ?", id).Delete(&models.Availability{}).Error; err != nil {
			return err
		}
		if err := tx.Where("monitor_id = ?", id).Delete(&models.AlertRule{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Monitor{}, "id = ?", id).Error
	})
}

func (r *monitorRepository) ApplyCheckOutcome(ctx context.Context, id uuid.UUID, outcome CheckOutcome) error {
	updates := map[string]interface{}{
		"status":                 outcome.Status,
		"consecutive_failures":   outcome.ConsecutiveFailures,
		"consecutive_degraded":   outcome.ConsecutiveDegraded,
		"consecutive_slow_count": outcome.ConsecutiveSlowCount,
		"consecutive_successes":  outcome.ConsecutiveSuccesses,
		"last_response_time_ms":  outcome.LastResponseTimeMs,
		"last_checked":           time.Now().UTC(),
		"total_checks":           gorm.Expr("total_checks + 1"),
	}
	if outcome.CountsAsSuccess {
		updates["successful_checks"] = gorm.Expr("successful_checks + 1")
	}
	return r.db.WithContext(ctx).Model(&models.Monitor{}).Where("id = ?", id).Updates(updates).Error
}
