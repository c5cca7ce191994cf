package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ysicing/pulseguard/internal/models"
)

// AlertRuleRepository persists owner-defined alert rules (§4.F EXPANSION).
type AlertRuleRepository interface {
	Create(ctx context.Context, rule *models.AlertRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.AlertRule, error)
	Update(ctx context.Context, rule *models.AlertRule) error
	Delete(ctx context.Context, id uuid.UUID) error

	// ListEnabledByMonitor returns the rules the alert engine evaluates for
	// one monitor's latest check, in addition to the built-in threshold path.
	ListEnabledByMonitor(ctx context.Context, monitorID uuid.UUID) ([]*models.AlertRule, error)

	RecordTrigger(ctx context.Context, id uuid.UUID, at time.Time) error
}

type alertRuleRepository struct {
	db *gorm.DB
}

// NewAlertRuleRepository creates an AlertRuleRepository.
func NewAlertRuleRepository(db *gorm.DB) AlertRuleRepository {
	return &alertRuleRepository{db: db}
}

func (r *alertRuleRepository) Create(ctx context.Context, rule *models.AlertRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *alertRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AlertRule, error) {
	var rule models.AlertRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *alertRuleRepository) Update(ctx context.Context, rule *models.AlertRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *alertRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.AlertRule{}, "id = ?", id).Error
}

func (r *alertRuleRepository) ListEnabledByMonitor(ctx context.Context, monitorID uuid.UUID) ([]*models.AlertRule, error) {
	var rules []*models.AlertRule
	if err := r.db.WithContext(ctx).
		Where("monitor_id = ? AND enabled = ?", monitorID, true).
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *alertRuleRepository) RecordTrigger(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.AlertRule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_triggered_at": at,
			"trigger_count":     gorm.Expr("trigger_count + 1"),
		}).Error
}
