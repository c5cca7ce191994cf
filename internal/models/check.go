package models

import (
	"time"

	"github.com/google/uuid"
)

// CheckStatus is the three-valued health state produced by one probe.
type CheckStatus string

const (
	CheckStatusUp       CheckStatus = "up"
	CheckStatusDown     CheckStatus = "down"
	CheckStatusDegraded CheckStatus = "degraded"
)

// Check is an append-only record of one probe execution. Retained 90 days
// then expired by TTL (see internal/repository.CheckRepository.PurgeExpired).
type Check struct {
	AppendOnlyModel

	MonitorID uuid.UUID `gorm:"type:char(36);not null;index:idx_checks_monitor_time,priority:1" json:"monitorId"`
	Timestamp time.Time `gorm:"not null;index:idx_checks_monitor_time,priority:2,sort:desc" json:"timestamp"`

	Status         CheckStatus `gorm:"type:varchar(16);not null" json:"status"`
	ResponseTimeMs int         `gorm:"not null" json:"responseTimeMs"`
	StatusCode     int         `gorm:"default:0" json:"statusCode,omitempty"`
	ErrorType      string      `gorm:"type:varchar(64)" json:"errorType,omitempty"`
	ErrorMessage   string      `gorm:"type:text" json:"errorMessage,omitempty"`

	// SSLInfo is populated only for SSL/HTTPS probes that performed a TLS handshake.
	SSLInfo JSONB `gorm:"type:text" json:"sslInfo,omitempty"`

	DegradationReasons StringArray `gorm:"type:text" json:"degradationReasons,omitempty"`
	Verifications      StringArray `gorm:"type:text" json:"verifications,omitempty"`
}

func (Check) TableName() string { return "checks" }
