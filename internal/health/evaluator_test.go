package health

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ysicing/pulseguard/internal/models"
	"github.com/ysicing/pulseguard/internal/probe"
)

func mustMonitorID() uuid.UUID { return uuid.New() }

func baseMonitor() *models.Monitor {
	return &models.Monitor{
		Protocol:         models.ProtocolHTTP,
		AlertThreshold:   2,
		TotalChecks:      100,
		SuccessfulChecks: 95,
	}
}

func TestEvaluate_ServerErrorPastThresholdIsDown(t *testing.T) {
	m := baseMonitor()
	m.ConsecutiveFailures = 5 // past threshold, so hysteresis confirms rule 1's down
	result := probe.CheckResult{IsUp: false, ErrorType: probe.HTTPServerError}

	eval := Evaluate(m, result)

	assert.Equal(t, models.CheckStatusDown, eval.Status)
}

func TestEvaluate_DownHysteresisBelowThreshold(t *testing.T) {
	m := baseMonitor()
	m.ConsecutiveFailures = 0
	result := probe.CheckResult{IsUp: false, ErrorType: probe.ConnectionRefused}

	eval := Evaluate(m, result)

	assert.Equal(t, models.CheckStatusDegraded, eval.Status)
	assert.Contains(t, eval.Reasons, "waiting for confirmation (1/2)")
}

func TestEvaluate_DownHysteresisAtThreshold(t *testing.T) {
	m := baseMonitor()
	m.ConsecutiveFailures = 1
	result := probe.CheckResult{IsUp: false, ErrorType: probe.ConnectionRefused}

	eval := Evaluate(m, result)

	assert.Equal(t, models.CheckStatusDown, eval.Status)
}

func TestEvaluate_SlowResponseDegrades(t *testing.T) {
	m := baseMonitor()
	result := probe.CheckResult{IsUp: true, ResponseTimeMs: 8000, Meta: probe.HTTPMeta{}}

	eval := Evaluate(m, result)

	assert.Equal(t, models.CheckStatusDegraded, eval.Status)
	assert.Equal(t, models.CategoryPerformance, eval.DegradationCategory)
	assert.Contains(t, eval.Reasons, "SLOW_RESPONSE")
}

func TestEvaluate_SSLExpiryWarning(t *testing.T) {
	m := baseMonitor()
	m.Protocol = models.ProtocolSSL
	m.SSLExpiryThresholdDays = 30
	result := probe.CheckResult{
		IsUp:           true,
		ResponseTimeMs: 100,
		Meta:           probe.SSLMeta{DaysRemaining: 10},
	}

	eval := Evaluate(m, result)

	assert.Equal(t, models.CheckStatusDegraded, eval.Status)
	assert.Equal(t, models.CategorySecurity, eval.DegradationCategory)
	assert.Contains(t, eval.Reasons, "SSL_WARNING: expires in 10 days")
}

func TestEvaluate_DisabledLatencyThreshold(t *testing.T) {
	m := baseMonitor()
	m.DegradedThresholdMs = -1 // explicitly disabled
	result := probe.CheckResult{IsUp: true, ResponseTimeMs: 999999}

	eval := Evaluate(m, result)

	assert.Equal(t, models.CheckStatusUp, eval.Status)
}

func TestEvaluate_CleanSuccessIsUp(t *testing.T) {
	m := baseMonitor()
	result := probe.CheckResult{IsUp: true, ResponseTimeMs: 50, Meta: probe.HTTPMeta{}}

	eval := Evaluate(m, result)

	assert.Equal(t, models.CheckStatusUp, eval.Status)
	assert.Empty(t, eval.Reasons)
}

func TestRecoveryConfirmed(t *testing.T) {
	assert.True(t, RecoveryConfirmed(0.9, 1))
	assert.True(t, RecoveryConfirmed(0.5, 2))
	assert.False(t, RecoveryConfirmed(0.5, 1))
}

func TestHistory_FailureRate(t *testing.T) {
	h := NewHistory()
	id := mustMonitorID()

	assert.Equal(t, 0.0, h.FailureRate(id))

	h.Record(id, models.CheckStatusDown)
	h.Record(id, models.CheckStatusDown)
	h.Record(id, models.CheckStatusUp)
	h.Record(id, models.CheckStatusUp)

	assert.InDelta(t, 0.5, h.FailureRate(id), 0.001)

	h.Forget(id)
	assert.Equal(t, 0.0, h.FailureRate(id))
}
