package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IncidentStatus is the incident lifecycle state (§4.F).
type IncidentStatus string

const (
	IncidentStatusOngoing  IncidentStatus = "ongoing"
	IncidentStatusResolved IncidentStatus = "resolved"
)

// IncidentSeverity drives escalation level and suppression TTL (§4.F, §9).
type IncidentSeverity string

const (
	IncidentSeverityLow    IncidentSeverity = "low"
	IncidentSeverityMedium IncidentSeverity = "medium"
	IncidentSeverityHigh   IncidentSeverity = "high"
)

// DegradationCategory classifies why a monitor is not up (§4.F).
type DegradationCategory string

const (
	CategoryPerformance DegradationCategory = "performance"
	CategorySecurity    DegradationCategory = "security"
	CategoryContent     DegradationCategory = "content"
	CategoryGeneral     DegradationCategory = "general"
)

// ResolvedBy records whether an incident closed itself or was closed by a
// human operator via the (external) control surface.
type ResolvedBy string

const (
	ResolvedByAuto   ResolvedBy = "auto"
	ResolvedByManual ResolvedBy = "manual"
)

// EmailDelivery is one entry of Incident.NotificationsSent.EmailDetails.
type EmailDelivery struct {
	Recipient string    `json:"recipient"`
	Sent      bool      `json:"sent"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// NotificationsSent tracks per-channel delivery outcomes for one incident
// transition. Stored as JSONB; never re-read to decide suppression (that is
// the SuppressionKey's job) — purely an audit trail.
type NotificationsSent struct {
	Email        bool            `json:"email"`
	Slack        bool            `json:"slack"`
	SMS          bool            `json:"sms"`
	Webhook      bool            `json:"webhook"`
	EmailDetails []EmailDelivery `json:"emailDetails,omitempty"`
}

// Incident is a contiguous period during which a Monitor is not `up`.
// Invariant: for each MonitorID at most one row with Status=ongoing exists
// at any instant (enforced at the write layer, see repository.IncidentRepository).
type Incident struct {
	BaseModelWithoutSoftDelete

	MonitorID uuid.UUID  `gorm:"type:char(36);not null;index:idx_incidents_monitor_status,priority:1" json:"monitorId"`
	StartTime time.Time  `gorm:"not null" json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	DurationS *int64     `json:"duration,omitempty"`

	Status IncidentStatus `gorm:"type:varchar(16);not null;index:idx_incidents_monitor_status,priority:2" json:"status"`

	ErrorMessage        string              `gorm:"type:text" json:"errorMessage,omitempty"`
	ErrorType           string              `gorm:"type:varchar(64)" json:"errorType,omitempty"`
	StatusCode          int                 `gorm:"default:0" json:"statusCode,omitempty"`
	Severity            IncidentSeverity    `gorm:"type:varchar(16);not null" json:"severity"`
	Confidence          float64             `gorm:"not null" json:"confidence"`
	DegradationCategory DegradationCategory `gorm:"type:varchar(16);not null" json:"degradationCategory"`

	NotificationsSent JSONB `gorm:"type:text" json:"notificationsSent"`

	RecoveryConfidence float64     `gorm:"default:0" json:"recoveryConfidence,omitempty"`
	ResolvedBy         *ResolvedBy `gorm:"type:varchar(16)" json:"resolvedBy,omitempty"`
}

func (Incident) TableName() string { return "incidents" }

// Resolve transitions the incident to resolved, computing duration. Returns
// an error if it is already resolved (idempotent mutation guard, §8 property 3).
func (i *Incident) Resolve(at time.Time, recoveryConfidence float64, by ResolvedBy) error {
	if i.Status == IncidentStatusResolved {
		return fmt.Errorf("incident %s is already resolved", i.ID)
	}
	if at.Before(i.StartTime) {
		at = i.StartTime
	}
	i.Status = IncidentStatusResolved
	i.EndTime = &at
	d := int64(at.Sub(i.StartTime).Seconds())
	i.DurationS = &d
	i.RecoveryConfidence = recoveryConfidence
	i.ResolvedBy = &by
	return nil
}

// IsOngoing reports whether the incident is still open.
func (i *Incident) IsOngoing() bool { return i.Status == IncidentStatusOngoing }
