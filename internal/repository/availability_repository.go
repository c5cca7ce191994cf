package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ysicing/pulseguard/internal/models"
)

// AvailabilityRepository persists periodic uptime rollups, grounded on the
// teacher's Where().Assign().FirstOrCreate() upsert pattern so recomputing a
// period's rollup never creates a duplicate row.
type AvailabilityRepository interface {
	Save(ctx context.Context, a *models.Availability) error
	Get(ctx context.Context, monitorID uuid.UUID, period string) (*models.Availability, error)

	// Calculate aggregates Check rows in [start, end) for monitorID into a
	// fresh, unsaved Availability row.
	Calculate(ctx context.Context, monitorID uuid.UUID, period string, start, end time.Time) (*models.Availability, error)
}

type availabilityRepository struct {
	db *gorm.DB
}

// NewAvailabilityRepository creates an AvailabilityRepository.
func NewAvailabilityRepository(db *gorm.DB) AvailabilityRepository {
	return &availabilityRepository{db: db}
}

func (r *availabilityRepository) Save(ctx context.Context, a *models.Availability) error {
	return r.db.WithContext(ctx).
		Where(models.Availability{MonitorID: a.MonitorID, Period: a.Period, StartTime: a.StartTime}).
		Assign(map[string]interface{}{
			"end_time":          a.EndTime,
			"total_checks":      a.TotalChecks,
			"successful_checks": a.SuccessfulChecks,
			"failed_checks":     a.FailedChecks,
			"avg_latency_ms":    a.AvgLatencyMs,
			"min_latency_ms":    a.MinLatencyMs,
			"max_latency_ms":    a.MaxLatencyMs,
			"uptime_percent":    a.UptimePercent,
		}).
		FirstOrCreate(a).Error
}

func (r *availabilityRepository) Get(ctx context.Context, monitorID uuid.UUID, period string) (*models.Availability, error) {
	var a models.Availability
	if err := r.db.WithContext(ctx).
		Where("monitor_id = ? AND period = ?", monitorID, period).
		Order("start_time DESC").
		First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

type aggregateRow struct {
	Total   int
	Success int
	Failed  int
	AvgMs   float64
	MinMs   int
	MaxMs   int
}

func (r *availabilityRepository) Calculate(ctx context.Context, monitorID uuid.UUID, period string, start, end time.Time) (*models.Availability, error) {
	var row aggregateRow
	err := r.db.WithContext(ctx).Model(&models.Check{}).
		Select(
			"COUNT(*) AS total",
			"SUM(CASE WHEN status = 'up' THEN 1 ELSE 0 END) AS success",
			"SUM(CASE WHEN status != 'up' THEN 1 ELSE 0 END) AS failed",
			"COALESCE(AVG(response_time_ms), 0) AS avg_ms",
			"COALESCE(MIN(response_time_ms), 0) AS min_ms",
			"COALESCE(MAX(response_time_ms), 0) AS max_ms",
		).
		Where("monitor_id = ? AND timestamp >= ? AND timestamp < ?", monitorID, start, end).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	a := &models.Availability{
		MonitorID:        monitorID,
		Period:           period,
		StartTime:        start,
		EndTime:          end,
		TotalChecks:      row.Total,
		SuccessfulChecks: row.Success,
		FailedChecks:     row.Failed,
		AvgLatencyMs:     row.AvgMs,
		MinLatencyMs:     row.MinMs,
		MaxLatencyMs:     row.MaxMs,
	}
	a.CalculateUptime()
	return a, nil
}
