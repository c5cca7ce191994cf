package models

import (
	"time"

	"github.com/google/uuid"
)

// Availability is a periodic aggregate over Check rows for one monitor,
// grounded on the teacher's ServiceAvailability model and
// CalculateAvailability/SaveAvailability repository methods (§3 EXPANSION).
type Availability struct {
	BaseModelWithoutSoftDelete

	MonitorID uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_availability_monitor_period" json:"monitorId"`
	Period    string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_availability_monitor_period" json:"period"` // "1h","24h","7d","30d"
	StartTime time.Time `gorm:"not null;uniqueIndex:idx_availability_monitor_period" json:"startTime"`
	EndTime   time.Time `gorm:"not null" json:"endTime"`

	TotalChecks      int     `gorm:"not null;default:0" json:"totalChecks"`
	SuccessfulChecks int     `gorm:"not null;default:0" json:"successfulChecks"`
	FailedChecks     int     `gorm:"not null;default:0" json:"failedChecks"`
	AvgLatencyMs     float64 `gorm:"default:0" json:"avgLatencyMs"`
	MinLatencyMs     int     `gorm:"default:0" json:"minLatencyMs"`
	MaxLatencyMs     int     `gorm:"default:0" json:"maxLatencyMs"`
	UptimePercent    float64 `gorm:"default:0" json:"uptimePercent"`
}

func (Availability) TableName() string { return "availability_rollups" }

// CalculateUptime derives UptimePercent from the check counters, matching
// the teacher's ServiceAvailability.CalculateUptime.
func (a *Availability) CalculateUptime() {
	if a.TotalChecks == 0 {
		a.UptimePercent = 0
		return
	}
	a.UptimePercent = float64(a.SuccessfulChecks) / float64(a.TotalChecks) * 100
}
