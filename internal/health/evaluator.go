// Package health implements the health-state evaluator (§4.C): it turns a
// single noisy probe.CheckResult, together with a monitor's running
// counters, into a stable
// {status, reasons, confidence} decision.
package health

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/ysicing/pulseguard/internal/models"
	"github.com/ysicing/pulseguard/internal/probe"
)

// Evaluation is the evaluator's output for one probe cycle.
type Evaluation struct {
	Status              models.CheckStatus
	DegradationCategory models.DegradationCategory
	Reasons             []string
	Confidence          float64
}

const (
	defaultAlertThreshold = 2
	recoveryConfidence    = 0.8
)

// Evaluate implements the ordered rule cascade in §4.C: the protocol-level
// classifier result, then slow-response, then SSL expiry, then client-error,
// otherwise up. It then applies hysteresis against the monitor's current
// consecutive counters before returning a final status.
func Evaluate(m *models.Monitor, result probe.CheckResult) Evaluation {
	candidateStatus, category, reasons, severity := classify(m, result)

	alertThreshold := m.AlertThreshold
	if alertThreshold <= 0 {
		alertThreshold = defaultAlertThreshold
	}

	status, reasons := applyHysteresis(m, candidateStatus, reasons, alertThreshold)
	confidence := computeConfidence(m, result, status, severity)

	return Evaluation{
		Status:              status,
		DegradationCategory: category,
		Reasons:             lo.Uniq(reasons),
		Confidence:          confidence,
	}
}

// classify runs the first-match-wins cascade against the raw probe result,
// returning a candidate status as if hysteresis did not exist.
func classify(m *models.Monitor, result probe.CheckResult) (models.CheckStatus, models.DegradationCategory, []string, float64) {
	if !result.IsUp && isDownSeverity(result.ErrorType) {
		return models.CheckStatusDown, models.CategoryGeneral, []string{string(result.ErrorType)}, 1.0
	}

	threshold := m.EffectiveLatencyThreshold()
	if result.IsUp && threshold > 0 && result.ResponseTimeMs > threshold {
		overshoot := float64(result.ResponseTimeMs) / float64(threshold)
		severity := clamp(0.4*overshoot, 0.4, 0.8)
		return models.CheckStatusDegraded, models.CategoryPerformance,
			[]string{"SLOW_RESPONSE"}, severity
	}

	if sslMeta, ok := result.Meta.(probe.SSLMeta); ok {
		if sslMeta.DaysRemaining <= m.SSLExpiryThresholdDays {
			reason := fmt.Sprintf("SSL_WARNING: expires in %d days", sslMeta.DaysRemaining)
			return models.CheckStatusDegraded, models.CategorySecurity,
				[]string{reason}, 0.6
		}
	}

	if result.ErrorType == probe.HTTPRateLimit {
		return models.CheckStatusDegraded, models.CategoryPerformance,
			[]string{"RATE_LIMITED"}, 0.5
	}
	if result.ErrorType == probe.HTTPClientError {
		return models.CheckStatusDegraded, models.CategoryGeneral,
			[]string{"CLIENT_ERROR"}, 0.5
	}

	if !result.IsUp {
		// A non-down-severity error that fell through every degraded rule
		// still can't be reported "up" — treat it as a general degradation
		// rather than silently promoting it.
		return models.CheckStatusDegraded, models.CategoryGeneral,
			[]string{string(result.ErrorType)}, 0.5
	}

	return models.CheckStatusUp, models.CategoryGeneral, nil, 0
}

// isDownSeverity reports whether an ErrorType makes the first rule of the
// cascade propose status=down (CERT_HAS_EXPIRED, SSL_INVALID,
// HTTP_SERVER_ERROR, and outright transport failures). applyHysteresis still
// reports degraded until consecutiveFailures reaches alertThreshold.
func isDownSeverity(errType probe.ErrorType) bool {
	switch errType {
	case probe.HTTPServerError,
		probe.ConnectionRefused,
		probe.Timeout,
		probe.DNSNotFound,
		probe.DNSError,
		probe.UDPTimeout,
		probe.CertExpired,
		probe.CertHasExpired,
		probe.CertNotYetValid,
		probe.CertHostnameMismatch,
		probe.CertUntrusted,
		probe.SSLInvalid,
		probe.PingTimeout,
		probe.PingHostUnreachable,
		probe.ProtocolMismatch,
		probe.MalformedStructure,
		probe.InvalidURL,
		probe.MissingTarget:
		return true
	default:
		return false
	}
}

// applyHysteresis enforces §4.C: a transition to down only completes once
// consecutiveFailures has reached alertThreshold; below that the monitor is
// reported degraded with a "waiting for confirmation" reason. Recovery to up
// requires either one high-confidence success or two consecutive successes.
func applyHysteresis(m *models.Monitor, candidate models.CheckStatus, reasons []string, alertThreshold int) (models.CheckStatus, []string) {
	switch candidate {
	case models.CheckStatusDown:
		next := m.ConsecutiveFailures + 1
		if next >= alertThreshold {
			return models.CheckStatusDown, reasons
		}
		return models.CheckStatusDegraded, append(reasons,
			fmt.Sprintf("waiting for confirmation (%d/%d)", next, alertThreshold))

	case models.CheckStatusDegraded:
		next := m.ConsecutiveDegraded + 1
		if next >= alertThreshold {
			return models.CheckStatusDegraded, reasons
		}
		return models.CheckStatusDegraded, reasons

	default: // up
		if m.Status == models.MonitorStatusDown || m.Status == models.MonitorStatusDegraded {
			// Recovery gate is evaluated by the caller via confidence; here
			// we only report what a single successful probe looks like. The
			// worker requires confidence>=0.8 or a second consecutive
			// success before it actually flips status to up, per the
			// two-consecutive-successes fallback.
			return models.CheckStatusUp, nil
		}
		return models.CheckStatusUp, nil
	}
}

// computeConfidence combines a window-match term, the severity of the
// triggering signal, and the monitor's baseline reliability score (§4.C).
// The window-match term comes from the current probe alone (1.0 for a failed
// probe, 0.6 for a non-up status on a successful probe, the reliability
// score when up); no rolling history of earlier checks is consulted.
func computeConfidence(m *models.Monitor, result probe.CheckResult, status models.CheckStatus, severity float64) float64 {
	reliability := m.ReliabilityScore()

	var windowMatch float64
	switch status {
	case models.CheckStatusDown, models.CheckStatusDegraded:
		if !result.IsUp {
			windowMatch = 1.0
		} else {
			windowMatch = 0.6
		}
	default:
		windowMatch = reliability
	}

	confidence := 0.5*windowMatch + 0.3*severity + 0.2*reliability
	return clamp(confidence, 0, 1)
}

// RecoveryConfirmed reports whether a successful probe, given the monitor's
// current consecutive-success streak, clears the recovery gate: confidence
// >= 0.8 on a single success, or two consecutive successes regardless of
// confidence.
func RecoveryConfirmed(confidence float64, consecutiveSuccesses int) bool {
	return confidence >= recoveryConfidence || consecutiveSuccesses >= 2
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
