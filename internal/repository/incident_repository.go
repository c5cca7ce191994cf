package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ysicing/pulseguard/internal/models"
)

// ErrIncidentAlreadyOngoing signals the at-most-one-ongoing-incident
// invariant (models.Incident doc comment) would be violated.
var ErrIncidentAlreadyOngoing = errors.New("monitor already has an ongoing incident")

// IncidentRepository persists Incident lifecycle transitions (§4.F).
type IncidentRepository interface {
	// Open creates a new ongoing incident for monitorID. It re-checks for an
	// existing ongoing row inside the same transaction before inserting,
	// since MySQL has no partial unique index to enforce this at the
	// constraint level (recorded decision: app-level re-check-then-write).
	Open(ctx context.Context, incident *models.Incident) error

	GetOngoing(ctx context.Context, monitorID uuid.UUID) (*models.Incident, error)

	// Resolve closes the ongoing incident for monitorID, if any, returning
	// gorm.ErrRecordNotFound when none is open.
	Resolve(ctx context.Context, monitorID uuid.UUID, at time.Time, recoveryConfidence float64, by models.ResolvedBy) (*models.Incident, error)

	Update(ctx context.Context, incident *models.Incident) error
	ListByMonitor(ctx context.Context, monitorID uuid.UUID, limit int) ([]*models.Incident, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
}

type incidentRepository struct {
	db *gorm.DB
}

// NewIncidentRepository creates an IncidentRepository.
func NewIncidentRepository(db *gorm.DB) IncidentRepository {
	return &incidentRepository{db: db}
}

func (r *incidentRepository) Open(ctx context.Context, incident *models.Incident) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Incident
		err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where("monitor_id = ? AND status = ?", incident.MonitorID, models.IncidentStatusOngoing).
			First(&existing).Error
		if err == nil {
			return ErrIncidentAlreadyOngoing
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(incident).Error
	})
}

func (r *incidentRepository) GetOngoing(ctx context.Context, monitorID uuid.UUID) (*models.Incident, error) {
	var incident models.Incident
	if err := r.db.WithContext(ctx).
		Where("monitor_id = ? AND status = ?", monitorID, models.IncidentStatusOngoing).
		First(&incident).Error; err != nil {
		return nil, err
	}
	return &incident, nil
}

func (r *incidentRepository) Resolve(ctx context.Context, monitorID uuid.UUID, at time.Time, recoveryConfidence float64, by models.ResolvedBy) (*models.Incident, error) {
	var resolved *models.Incident
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var incident models.Incident
		if err := tx.Set("gorm:query_option", "FOR UPDATE").
			Where("monitor_id = ? AND status = ?", monitorID, models.IncidentStatusOngoing).
			First(&incident).Error; err != nil {
			return err
		}
		if err := incident.Resolve(at, recoveryConfidence, by); err != nil {
			return err
		}
		if err := tx.Save(&incident).Error; err != nil {
			return err
		}
		resolved = &incident
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

func (r *incidentRepository) Update(ctx context.Context, incident *models.Incident) error {
	return r.db.WithContext(ctx).Save(incident).Error
}

func (r *incidentRepository) ListByMonitor(ctx context.Context, monitorID uuid.UUID, limit int) ([]*models.Incident, error) {
	if limit <= 0 {
		limit = 50
	}
	var incidents []*models.Incident
	if err := r.db.WithContext(ctx).
		Where("monitor_id = ?", monitorID).
		Order("start_time DESC").
		Limit(limit).
		Find(&incidents).Error; err != nil {
		return nil, err
	}
	return incidents, nil
}

func (r *incidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	var incident models.Incident
	if err := r.db.WithContext(ctx).First(&incident, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &incident, nil
}
