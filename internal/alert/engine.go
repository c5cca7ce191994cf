// Package alert implements the incident lifecycle and notification fan-out
// (§4.F): classify severity, open/update/resolve Incident rows under the
// at-most-one-ongoing-incident invariant, gate repeat notifications with
// suppression keys, and evaluate owner-defined custom rules on top.
package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/ysicing/pulseguard/internal/cache"
	"github.com/ysicing/pulseguard/internal/health"
	"github.com/ysicing/pulseguard/internal/metrics"
	"github.com/ysicing/pulseguard/internal/models"
	"github.com/ysicing/pulseguard/internal/repository"
	"github.com/ysicing/pulseguard/internal/services/notification"
)

// Engine satisfies internal/worker's AlertEngine interface, the same
// structural inversion the teacher uses between its scheduler and task
// handlers.
type Engine struct {
	incidents repository.IncidentRepository
	rules     repository.AlertRuleRepository
	cache     *cache.Client
	history   *health.History
	notifiers map[string]notification.Notifier
}

// New creates an Engine. notifiers is keyed by channel name ("email",
// "slack", "sms", "webhook") as produced by channelsForMonitor. history may
// be nil, in which case the content-category threshold rule never fires
// (failureRate reports 0).
func New(incidents repository.IncidentRepository, rules repository.AlertRuleRepository, c *cache.Client, history *health.History, notifiers map[string]notification.Notifier) *Engine {
	return &Engine{incidents: incidents, rules: rules, cache: c, history: history, notifiers: notifiers}
}

// Handle implements worker.AlertEngine. It runs on every processed check,
// after the monitor's counters have already been updated by the worker.
func (e *Engine) Handle(ctx context.Context, monitor *models.Monitor, evaluation health.Evaluation, check *models.Check) error {
	if evaluation.Status == models.CheckStatusUp {
		return e.handleRecovery(ctx, monitor, evaluation, check)
	}
	return e.handleUnhealthy(ctx, monitor, evaluation, check)
}

// handleRecovery closes every ongoing incident for the monitor, clears its
// suppression keys (§4.F: "cleared within 1s of recovery" so the next down
// transition re-alerts immediately), and sends one recovery notification if
// anything was actually open. A monitor that never had an open incident
// recovers silently.
func (e *Engine) handleRecovery(ctx context.Context, monitor *models.Monitor, evaluation health.Evaluation, check *models.Check) error {
	closed := 0
	for {
		_, err := e.incidents.Resolve(ctx, monitor.ID, check.Timestamp, evaluation.Confidence, models.ResolvedByAuto)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return fmt.Errorf("alert: resolve incident for monitor %s: %w", monitor.ID, err)
		}
		closed++
		metrics.IncidentsOpen.Dec()
	}

	e.evaluateCustomRules(ctx, monitor, check, evaluation.Confidence)

	if closed == 0 {
		return nil
	}

	if err := e.cache.ClearSuppression(ctx, monitor.ID.String()); err != nil {
		logrus.Warnf("alert: clear suppression for monitor %s: %v", monitor.ID, err)
	}

	targets := channelsForMonitor(monitor)
	payload := &notification.Notification{
		Title:    fmt.Sprintf("%s has recovered", monitor.Name),
		Message:  fmt.Sprintf("Monitor %s is back up (confidence %.2f).", monitor.Name, evaluation.Confidence),
		Severity: notification.SeverityInfo,
	}
	results := e.fanOut(ctx, monitor.ID.String(), escalationLow, "recovery", targets, payload)
	logDispatch(monitor.ID, "recovery", results)
	return nil
}

// handleUnhealthy opens or updates the ongoing incident for a down/degraded
// evaluation once it crosses the monitor's alert threshold, then fans out
// notifications gated by suppression (§4.F).
func (e *Engine) handleUnhealthy(ctx context.Context, monitor *models.Monitor, evaluation health.Evaluation, check *models.Check) error {
	e.evaluateCustomRules(ctx, monitor, check, evaluation.Confidence)

	failureRate := 0.0
	if e.history != nil {
		failureRate = e.history.FailureRate(monitor.ID)
	}
	if !crossesIncidentThreshold(monitor, evaluation, monitor.AlertThreshold, failureRate) {
		return nil
	}

	checked := CheckedResult{ResponseTimeMs: check.ResponseTimeMs, StatusCode: check.StatusCode}
	severity := classifySeverity(monitor, checked, evaluation)
	level := escalationFromSeverity(severity)
	category := evaluation.DegradationCategory
	if category == "" {
		category = models.CategoryGeneral
	}

	existing, err := e.incidents.GetOngoing(ctx, monitor.ID)
	switch {
	case err == nil:
		existing.Severity = severity
		existing.Confidence = evaluation.Confidence
		existing.DegradationCategory = category
		existing.ErrorMessage = check.ErrorMessage
		existing.ErrorType = check.ErrorType
		existing.StatusCode = check.StatusCode
		if err := e.incidents.Update(ctx, existing); err != nil {
			return fmt.Errorf("alert: update incident for monitor %s: %w", monitor.ID, err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		incident := &models.Incident{
			MonitorID:           monitor.ID,
			StartTime:           check.Timestamp,
			Status:              models.IncidentStatusOngoing,
			Severity:            severity,
			Confidence:          evaluation.Confidence,
			DegradationCategory: category,
			ErrorMessage:        check.ErrorMessage,
			ErrorType:           check.ErrorType,
			StatusCode:          check.StatusCode,
		}
		if err := e.incidents.Open(ctx, incident); err != nil && !errors.Is(err, repository.ErrIncidentAlreadyOngoing) {
			return fmt.Errorf("alert: open incident for monitor %s: %w", monitor.ID, err)
		} else if err == nil {
			metrics.IncidentsOpen.Inc()
		}
	default:
		return fmt.Errorf("alert: get ongoing incident for monitor %s: %w", monitor.ID, err)
	}

	alertType := level.alertType()
	targets := channelsForMonitor(monitor)
	payload := &notification.Notification{
		Title:    fmt.Sprintf("%s is %s", monitor.Name, evaluation.Status),
		Message:  incidentMessage(monitor, evaluation, check),
		Severity: severityToNotificationSeverity(severity),
	}
	results := e.fanOut(ctx, monitor.ID.String(), level, alertType, targets, payload)
	logDispatch(monitor.ID, alertType, results)

	if ongoing, err := e.incidents.GetOngoing(ctx, monitor.ID); err == nil {
		ongoing.NotificationsSent = buildNotificationsSent(results)
		if err := e.incidents.Update(ctx, ongoing); err != nil {
			logrus.Warnf("alert: record notification audit for monitor %s: %v", monitor.ID, err)
		}
	}

	return nil
}

func incidentMessage(monitor *models.Monitor, evaluation health.Evaluation, check *models.Check) string {
	if check.ErrorMessage != "" {
		return fmt.Sprintf("Monitor %s reported %s: %s", monitor.Name, evaluation.Status, check.ErrorMessage)
	}
	return fmt.Sprintf("Monitor %s reported %s (reasons: %v)", monitor.Name, evaluation.Status, evaluation.Reasons)
}

func logDispatch(monitorID uuid.UUID, alertType string, results []dispatchResult) {
	for _, r := range results {
		if r.err != nil {
			logrus.Warnf("alert: %s notification via %s failed for monitor %s: %v", alertType, r.channel, monitorID.String(), r.err)
		}
	}
}
