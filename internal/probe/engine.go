package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/ysicing/pulseguard/internal/models"
)

// Run dispatches a single probe for m within its configured timeout,
// enforcing ValidateTarget first and routing by protocol to the matching
// prober (§4.A). The context passed to the prober always carries a
// deadline derived from m.TimeoutMs, regardless of any deadline already on
// ctx, so a caller-supplied context can only shorten, never lengthen, the
// probe's budget.
func Run(ctx context.Context, m *models.Monitor) CheckResult {
	if r := ValidateTarget(m.Protocol, m.Target, m.Port); r != nil {
		return *r
	}

	timeout := time.Duration(m.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result := dispatch(probeCtx, m)
	if !result.IsUp && result.ErrorType == ErrNone {
		// A prober returned a failure without setting ErrorType; that is a
		// bug in the prober, not a valid probe outcome, so surface it as a
		// structural error rather than silently reporting success-shaped
		// zero values.
		result.ErrorType = MalformedStructure
		result.ErrorMessage = "prober reported failure without an error type"
	}
	return result
}

func dispatch(ctx context.Context, m *models.Monitor) CheckResult {
	switch m.Protocol {
	case models.ProtocolHTTP, models.ProtocolHTTPS:
		return ProbeHTTP(ctx, m)
	case models.ProtocolTCP:
		return ProbeTCP(ctx, m)
	case models.ProtocolUDP:
		return ProbeUDP(ctx, m)
	case models.ProtocolDNS:
		return ProbeDNS(ctx, m)
	case models.ProtocolSMTP:
		return ProbeSMTP(ctx, m)
	case models.ProtocolSSL:
		return ProbeSSL(ctx, m)
	case models.ProtocolPING:
		return ProbePing(ctx, m)
	default:
		return down(ProtocolMismatch, fmt.Sprintf("unsupported protocol: %s", m.Protocol), 0)
	}
}
