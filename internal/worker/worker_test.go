package worker

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ysicing/pulseguard/internal/health"
	"github.com/ysicing/pulseguard/internal/models"
	"github.com/ysicing/pulseguard/internal/probe"
)

func baseMonitor() *models.Monitor {
	m := &models.Monitor{
		Protocol:       models.ProtocolHTTP,
		Target:         "https://example.com",
		AlertThreshold: 2,
	}
	m.ID = uuid.New()
	m.Status = models.MonitorStatusUp
	return m
}

func TestBuildOutcome_FirstFailureIncrementsConsecutiveFailures(t *testing.T) {
	m := baseMonitor()
	result := probe.CheckResult{IsUp: false, ErrorType: probe.ConnectionRefused}
	evaluation := health.Evaluate(m, result)

	outcome := buildOutcome(m, result, evaluation)

	assert.Equal(t, 1, outcome.ConsecutiveFailures)
	assert.Equal(t, 0, outcome.ConsecutiveDegraded)
}

func TestBuildOutcome_SecondFailureCrossesThresholdToDown(t *testing.T) {
	m := baseMonitor()
	m.ConsecutiveFailures = 1
	result := probe.CheckResult{IsUp: false, ErrorType: probe.ConnectionRefused}
	evaluation := health.Evaluate(m, result)

	outcome := buildOutcome(m, result, evaluation)

	assert.Equal(t, models.MonitorStatusDown, outcome.Status)
	assert.Equal(t, 2, outcome.ConsecutiveFailures)
	assert.False(t, outcome.CountsAsSuccess)
}

func TestBuildOutcome_FirstSuccessAfterDownDoesNotRecoverAlone(t *testing.T) {
	// Recovery requires confidence >= 0.8 or two consecutive successes
	// (§4.C); a single ordinary success after a down streak only starts the
	// success streak, it does not yet flip the monitor back to up.
	m := baseMonitor()
	m.ConsecutiveFailures = 2
	m.Status = models.MonitorStatusDown
	result := probe.CheckResult{IsUp: true, ResponseTimeMs: 50}
	evaluation := health.Evaluate(m, result)

	outcome := buildOutcome(m, result, evaluation)

	assert.Equal(t, models.MonitorStatusDown, outcome.Status)
	assert.Equal(t, 0, outcome.ConsecutiveFailures)
	assert.Equal(t, 1, outcome.ConsecutiveSuccesses)
	assert.True(t, outcome.CountsAsSuccess)
}

func TestBuildOutcome_SecondConsecutiveSuccessConfirmsRecovery(t *testing.T) {
	m := baseMonitor()
	m.ConsecutiveFailures = 0
	m.ConsecutiveSuccesses = 1
	m.Status = models.MonitorStatusDown
	result := probe.CheckResult{IsUp: true, ResponseTimeMs: 50}
	evaluation := health.Evaluate(m, result)

	outcome := buildOutcome(m, result, evaluation)

	assert.Equal(t, models.MonitorStatusUp, outcome.Status)
	assert.Equal(t, 2, outcome.ConsecutiveSuccesses)
}

func TestIsFirstSignal_OnlyTrueBeforeAnyFailureRecorded(t *testing.T) {
	w := &Worker{}
	m := baseMonitor()
	result := probe.CheckResult{IsUp: false, ErrorType: probe.ConnectionRefused}
	evaluation := health.Evaluate(m, result)

	assert.True(t, w.isFirstSignal(m, evaluation))

	m.ConsecutiveFailures = 1
	assert.False(t, w.isFirstSignal(m, evaluation))
}

func TestBuildCheck_CarriesErrorTypeAndReasons(t *testing.T) {
	m := baseMonitor()
	result := probe.CheckResult{IsUp: false, ErrorType: probe.HTTPServerError, ErrorMessage: "500"}
	evaluation := health.Evaluate(m, result)

	check := buildCheck(m, result, evaluation)

	assert.Equal(t, m.ID, check.MonitorID)
	assert.Equal(t, string(probe.HTTPServerError), check.ErrorType)
	assert.NotEmpty(t, check.DegradationReasons)
}
