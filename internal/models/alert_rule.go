package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertRule is an owner-defined, optional condition evaluated with
// expr-lang/expr against a monitor's latest CheckResult and counters, in
// addition to (never instead of) the built-in threshold engine (§4.F EXPANSION).
type AlertRule struct {
	BaseModel

	MonitorID uuid.UUID `gorm:"type:char(36);not null;index:idx_alert_rules_monitor" json:"monitorId"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`

	// Condition is an expr-lang boolean expression evaluated against a
	// ruleEnv (see internal/alert/rules.go), e.g.
	// "responseTimeMs > 2000 && statusCode == 200".
	Condition string `gorm:"type:text;not null" json:"condition"`

	Severity IncidentSeverity `gorm:"type:varchar(16);not null;default:'medium'" json:"severity"`
	Enabled  bool             `gorm:"not null;default:true" json:"enabled"`

	NotifyChannels StringArray `gorm:"type:text" json:"notifyChannels,omitempty"`

	LastTriggeredAt *time.Time `json:"lastTriggeredAt,omitempty"`
	TriggerCount    int64      `gorm:"default:0" json:"triggerCount"`
}

func (AlertRule) TableName() string { return "alert_rules" }
