package models

import (
	"fmt"
	"time"
)

// TaskExecution records one scheduled-task run: state transitions, timing,
// and any error, for history queries and crash recovery on startup.
type TaskExecution struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	TaskUID  string `gorm:"type:varchar(255);not null;index:idx_task_executions_task_uid;index:idx_task_executions_composite,priority:2" json:"task_uid"`
	TaskName string `gorm:"type:varchar(255);not null;index:idx_task_executions_task_name;index:idx_task_executions_composite,priority:1" json:"task_name"`
	TaskType string `gorm:"type:varchar(255);not null" json:"task_type"`

	ExecutionUID string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"execution_uid"`
	RunBy        string    `gorm:"type:varchar(255);not null" json:"run_by"`
	ScheduledAt  time.Time `gorm:"not null" json:"scheduled_at"`
	StartedAt    time.Time `gorm:"not null;index:idx_task_executions_started_at;index:idx_task_executions_composite,priority:4" json:"started_at"`
	FinishedAt   time.Time `gorm:"" json:"finished_at,omitempty"`

	State        ExecutionState `gorm:"type:varchar(32);not null;index:idx_task_executions_state;index:idx_task_executions_composite,priority:3" json:"state"`
	Result       string         `gorm:"type:text" json:"result,omitempty"`
	ErrorMessage string         `gorm:"type:text" json:"error_message,omitempty"`
	ErrorStack   string         `gorm:"type:text" json:"error_stack,omitempty"`

	DurationMs int64 `gorm:"not null;default:0" json:"duration_ms"`
	Progress   int   `gorm:"not null;default:0" json:"progress"`
	RetryCount int   `gorm:"not null;default:0" json:"retry_count"`

	TriggerType string `gorm:"type:varchar(32);not null" json:"trigger_type"` // scheduled, manual
	TriggerBy   string `gorm:"type:varchar(255)" json:"trigger_by,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

func (TaskExecution) TableName() string { return "task_executions" }

// ExecutionState is the task execution state machine.
type ExecutionState string

const (
	ExecutionStatePending     ExecutionState = "pending"
	ExecutionStateRunning     ExecutionState = "running"
	ExecutionStateSuccess     ExecutionState = "success"
	ExecutionStateFailure     ExecutionState = "failure"
	ExecutionStateTimeout     ExecutionState = "timeout"
	ExecutionStateCancelled   ExecutionState = "cancelled"
	ExecutionStateInterrupted ExecutionState = "interrupted"
)

// Validate reports whether s is a known state.
func (s ExecutionState) Validate() error {
	switch s {
	case ExecutionStatePending, ExecutionStateRunning, ExecutionStateSuccess,
		ExecutionStateFailure, ExecutionStateTimeout, ExecutionStateCancelled,
		ExecutionStateInterrupted:
		return nil
	default:
		return fmt.Errorf("invalid execution state: %s", s)
	}
}

func (s ExecutionState) String() string { return string(s) }

// IsTerminal reports whether s is a terminal state.
func (s ExecutionState) IsTerminal() bool {
	switch s {
	case ExecutionStateSuccess, ExecutionStateFailure, ExecutionStateTimeout,
		ExecutionStateCancelled, ExecutionStateInterrupted:
		return true
	default:
		return false
	}
}

func (s ExecutionState) IsSuccess() bool { return s == ExecutionStateSuccess }

func (s ExecutionState) IsFailure() bool {
	switch s {
	case ExecutionStateFailure, ExecutionStateTimeout:
		return true
	default:
		return false
	}
}

// Validate checks required fields and state-dependent invariants.
func (te *TaskExecution) Validate() error {
	if te.TaskUID == "" {
		return fmt.Errorf("task_uid is required")
	}
	if te.TaskName == "" {
		return fmt.Errorf("task_name is required")
	}
	if te.TaskType == "" {
		return fmt.Errorf("task_type is required")
	}
	if te.ExecutionUID == "" {
		return fmt.Errorf("execution_uid is required")
	}
	if te.RunBy == "" {
		return fmt.Errorf("run_by is required")
	}
	if err := te.State.Validate(); err != nil {
		return err
	}
	if te.Progress < 0 || te.Progress > 100 {
		return fmt.Errorf("progress must be between 0 and 100, got: %d", te.Progress)
	}
	if te.State.IsTerminal() && te.FinishedAt.IsZero() {
		return fmt.Errorf("finished_at is required for terminal state: %s", te.State)
	}
	if !te.FinishedAt.IsZero() && !te.StartedAt.IsZero() && te.FinishedAt.Before(te.StartedAt) {
		return fmt.Errorf("finished_at (%v) cannot be before started_at (%v)", te.FinishedAt, te.StartedAt)
	}
	switch te.TriggerType {
	case "scheduled", "manual":
	default:
		return fmt.Errorf("invalid trigger_type: %s (must be 'scheduled' or 'manual')", te.TriggerType)
	}
	return nil
}

// CalculateDuration computes elapsed milliseconds, using time.Now() if the
// execution has not finished yet.
func (te *TaskExecution) CalculateDuration() int64 {
	if te.StartedAt.IsZero() {
		return 0
	}
	endTime := te.FinishedAt
	if endTime.IsZero() {
		endTime = time.Now()
	}
	return endTime.Sub(te.StartedAt).Milliseconds()
}

// UpdateDuration refreshes DurationMs from CalculateDuration.
func (te *TaskExecution) UpdateDuration() {
	te.DurationMs = te.CalculateDuration()
}
