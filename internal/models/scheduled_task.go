package models

import (
	"time"
)

// ScheduledTask is a persisted schedule configuration for a recurring or
// one-shot background task (in this repository, the maintenance jobs — see
// internal/maintenance; per-monitor probes are queued by internal/scheduler
// without a ScheduledTask row).
type ScheduledTask struct {
	UID  string `gorm:"type:varchar(255);primaryKey" json:"uid"`
	Name string `gorm:"type:varchar(255);not null;uniqueIndex:idx_scheduled_tasks_name" json:"name"`
	Type string `gorm:"type:varchar(255);not null;index:idx_scheduled_tasks_type" json:"type"`

	Description string `gorm:"type:text" json:"description,omitempty"`

	IsRecurring bool       `gorm:"not null;default:true" json:"is_recurring"`
	CronExpr    string     `gorm:"type:varchar(255)" json:"cron_expr,omitempty"`
	Interval    int64      `gorm:"default:0" json:"interval,omitempty"` // seconds, for non-cron tasks
	NextRun     *time.Time `gorm:"index:idx_scheduled_tasks_next_run" json:"next_run,omitempty"`

	Enabled bool `gorm:"not null;default:true;index:idx_scheduled_tasks_enabled" json:"enabled"`

	MaxDurationSeconds int `gorm:"not null;default:3600" json:"max_duration_seconds"`
	MaxRetries         int `gorm:"default:0" json:"max_retries,omitempty"`
	TimeoutGracePeriod int `gorm:"default:30" json:"timeout_grace_period,omitempty"`
	MaxConcurrent      int `gorm:"default:1" json:"max_concurrent,omitempty"`
	Priority           int `gorm:"default:0;index:idx_scheduled_tasks_priority" json:"priority,omitempty"`

	Labels map[string]string `gorm:"type:text;serializer:json" json:"labels,omitempty"`
	Data   string            `gorm:"type:text" json:"data,omitempty"`

	TotalExecutions     int64      `gorm:"default:0" json:"total_executions"`
	SuccessExecutions   int64      `gorm:"default:0" json:"success_executions"`
	FailureExecutions   int64      `gorm:"default:0" json:"failure_executions"`
	ConsecutiveFailures int        `gorm:"default:0" json:"consecutive_failures"`
	LastExecutedAt      *time.Time `json:"last_executed_at,omitempty"`
	LastFailureError    string     `gorm:"type:text" json:"last_failure_error,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ScheduledTask) TableName() string { return "scheduled_tasks" }

// IncrementExecutions updates the success/failure counters after one run.
func (st *ScheduledTask) IncrementExecutions(success bool) {
	st.TotalExecutions++
	if success {
		st.SuccessExecutions++
		st.ConsecutiveFailures = 0
		st.LastFailureError = ""
	} else {
		st.FailureExecutions++
		st.ConsecutiveFailures++
	}
	now := time.Now()
	st.LastExecutedAt = &now
}

// SetLastFailure records the last failure error message.
func (st *ScheduledTask) SetLastFailure(errorMsg string) {
	st.LastFailureError = errorMsg
}

// IsHealthy reports whether the task has fewer than three consecutive
// failures.
func (st *ScheduledTask) IsHealthy() bool {
	return st.ConsecutiveFailures < 3
}
