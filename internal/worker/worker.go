// Package worker implements the per-job probe pipeline (§4.E): load monitor,
// probe, evaluate, persist, alert, publish. A Worker satisfies internal/
// scheduler's JobHandler interface structurally (no import needed in either
// direction), the same inversion the teacher uses between Scheduler and Task.
package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ysicing/pulseguard/internal/cache"
	"github.com/ysicing/pulseguard/internal/health"
	"github.com/ysicing/pulseguard/internal/metrics"
	"github.com/ysicing/pulseguard/internal/models"
	"github.com/ysicing/pulseguard/internal/probe"
	"github.com/ysicing/pulseguard/internal/repository"
)

// AlertEngine reacts to one evaluated check, deciding incident lifecycle
// transitions and notification fan-out. Implemented by internal/alert.
type AlertEngine interface {
	Handle(ctx context.Context, monitor *models.Monitor, evaluation health.Evaluation, check *models.Check) error
}

// MonitorUpdate is the payload published to the real-time relay stream on
// every processed job (§4.G).
type MonitorUpdate struct {
	MonitorID  uuid.UUID            `json:"monitorId"`
	OwnerID    uuid.UUID            `json:"ownerId"`
	Status     models.MonitorStatus `json:"status"`
	Reasons    []string             `json:"reasons,omitempty"`
	Confidence float64              `json:"confidence"`
	At         time.Time            `json:"at"`
}

// Worker is the job pipeline: one Run call performs exactly one probe cycle
// for a monitor (§4.E).
type Worker struct {
	monitors repository.MonitorRepository
	checks   repository.CheckRepository
	alerts   AlertEngine
	cache    *cache.Client
	history  *health.History
}

// New creates a Worker. history may be nil if rolling-window tracking is not
// needed by the caller (e.g. in tests).
func New(monitors repository.MonitorRepository, checks repository.CheckRepository, alerts AlertEngine, c *cache.Client, history *health.History) *Worker {
	return &Worker{monitors: monitors, checks: checks, alerts: alerts, cache: c, history: history}
}

// Run implements scheduler.JobHandler.
func (w *Worker) Run(ctx context.Context, monitorID uuid.UUID) error {
	monitor, err := w.monitors.GetByID(ctx, monitorID)
	if err != nil {
		// Missing monitor: ack (return nil) rather than retry forever, per
		// §4.E step 1.
		logrus.Warnf("worker: monitor %s not found, skipping: %v", monitorID, err)
		return nil
	}
	if !monitor.IsActive {
		logrus.Debugf("worker: monitor %s inactive, skipping", monitorID)
		return nil
	}

	probeStart := time.Now()
	result := probe.Run(ctx, monitor)
	evaluation := health.Evaluate(monitor, result)
	metrics.ObserveProbe(string(monitor.Protocol), string(evaluation.Status), time.Since(probeStart))

	// [EXPANSION] Verification lane: the first time a monitor departs from
	// `up`, re-probe immediately rather than letting a single transient blip
	// start consuming the hysteresis budget. Only applies when no failure
	// streak has started yet, so it never delays a monitor already confirmed
	// unhealthy.
	if evaluation.Status != models.CheckStatusUp && w.isFirstSignal(monitor, evaluation) {
		verifyResult := probe.Run(ctx, monitor)
		verifyEval := health.Evaluate(monitor, verifyResult)
		result, evaluation = verifyResult, verifyEval
	}

	if w.history != nil {
		w.history.Record(monitorID, evaluation.Status)
	}

	outcome := buildOutcome(monitor, result, evaluation)
	if err := w.monitors.ApplyCheckOutcome(ctx, monitorID, outcome); err != nil {
		return fmt.Errorf("worker: apply check outcome for monitor %s: %w", monitorID, err)
	}

	check := buildCheck(monitor, result, evaluation)
	if err := w.checks.Create(ctx, check); err != nil {
		return fmt.Errorf("worker: persist check for monitor %s: %w", monitorID, err)
	}

	// Reflect the atomic update locally so the alert engine and publish step
	// see the post-update counters without a second read.
	monitor.Status = outcome.Status
	monitor.ConsecutiveFailures = outcome.ConsecutiveFailures
	monitor.ConsecutiveDegraded = outcome.ConsecutiveDegraded
	monitor.ConsecutiveSlowCount = outcome.ConsecutiveSlowCount
	monitor.ConsecutiveSuccesses = outcome.ConsecutiveSuccesses
	monitor.LastResponseTimeMs = outcome.LastResponseTimeMs

	if w.alerts != nil {
		if err := w.alerts.Handle(ctx, monitor, evaluation, check); err != nil {
			// Transient infra errors (notification delivery, incident
			// persistence) should not fail the whole job: the probe itself
			// succeeded and was already recorded. Log and continue so the
			// job still acks (§7: alerting failures are non-fatal to the
			// check pipeline).
			logrus.Errorf("worker: alert engine error for monitor %s: %v", monitorID, err)
		}
	}

	if w.cache != nil {
		update := MonitorUpdate{
			MonitorID:  monitor.ID,
			OwnerID:    monitor.OwnerID,
			Status:     monitor.Status,
			Reasons:    evaluation.Reasons,
			Confidence: evaluation.Confidence,
			At:         time.Now().UTC(),
		}
		if err := w.cache.PublishUpdate(ctx, update); err != nil {
			logrus.Errorf("worker: publish update for monitor %s: %v", monitorID, err)
		}
	}

	return nil
}

// isFirstSignal reports whether evaluation represents the first sign of
// trouble for its category, i.e. the relevant consecutive counter is still
// zero.
func (w *Worker) isFirstSignal(m *models.Monitor, evaluation health.Evaluation) bool {
	switch evaluation.Status {
	case models.CheckStatusDown:
		return m.ConsecutiveFailures == 0
	case models.CheckStatusDegraded:
		if containsReason(evaluation.Reasons, "waiting for confirmation") {
			return m.ConsecutiveFailures == 0
		}
		return m.ConsecutiveDegraded == 0
	default:
		return false
	}
}

func buildOutcome(m *models.Monitor, result probe.CheckResult, evaluation health.Evaluation) repository.CheckOutcome {
	countsAsSuccess := evaluation.Status == models.CheckStatusUp || evaluation.Status == models.CheckStatusDegraded

	failures := m.ConsecutiveFailures
	degraded := m.ConsecutiveDegraded
	slow := m.ConsecutiveSlowCount
	successes := m.ConsecutiveSuccesses

	status := m.Status

	switch evaluation.Status {
	case models.CheckStatusDown:
		failures++
		degraded = 0
		successes = 0
		status = models.MonitorStatusDown
	case models.CheckStatusDegraded:
		// A down candidate held at degraded by hysteresis still extends the
		// failure streak, so the monitor reaches down at alertThreshold.
		if containsReason(evaluation.Reasons, "waiting for confirmation") {
			failures++
			degraded = 0
		} else {
			degraded++
			failures = 0
		}
		successes = 0
		status = models.MonitorStatusDegraded
	default: // up
		failures = 0
		degraded = 0
		successes++
		// Recovery gate (§4.C): only flip a previously down/degraded
		// monitor to up once confirmed by confidence or a second
		// consecutive success. A monitor already up, or one with no prior
		// trouble, reports up immediately.
		if status == models.MonitorStatusDown || status == models.MonitorStatusDegraded {
			if health.RecoveryConfirmed(evaluation.Confidence, successes) {
				status = models.MonitorStatusUp
			}
		} else {
			status = models.MonitorStatusUp
		}
	}

	if containsReason(evaluation.Reasons, "SLOW_RESPONSE") {
		slow++
	} else {
		slow = 0
	}

	return repository.CheckOutcome{
		Status:               status,
		CountsAsSuccess:      countsAsSuccess,
		ConsecutiveFailures:  failures,
		ConsecutiveDegraded:  degraded,
		ConsecutiveSlowCount: slow,
		ConsecutiveSuccesses: successes,
		LastResponseTimeMs:   result.ResponseTimeMs,
	}
}

func buildCheck(m *models.Monitor, result probe.CheckResult, evaluation health.Evaluation) *models.Check {
	check := &models.Check{
		MonitorID:          m.ID,
		Timestamp:          time.Now().UTC(),
		Status:             evaluation.Status,
		ResponseTimeMs:     result.ResponseTimeMs,
		ErrorType:          string(result.ErrorType),
		ErrorMessage:       result.ErrorMessage,
		DegradationReasons: models.StringArray(evaluation.Reasons),
	}
	if result.StatusCode != nil {
		check.StatusCode = *result.StatusCode
	}
	if sslMeta, ok := result.Meta.(probe.SSLMeta); ok {
		check.SSLInfo = models.JSONB{
			"notBefore":     sslMeta.NotBefore,
			"notAfter":      sslMeta.NotAfter,
			"daysRemaining": sslMeta.DaysRemaining,
			"issuer":        sslMeta.Issuer,
			"selfSigned":    sslMeta.SelfSigned,
		}
	}
	return check
}

func containsReason(reasons []string, target string) bool {
	for _, r := range reasons {
		if strings.HasPrefix(r, target) {
			return true
		}
	}
	return false
}
