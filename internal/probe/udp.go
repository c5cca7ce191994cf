package probe

import (
	"context"
	"net"
	"time"

	"github.com/ysicing/pulseguard/internal/models"
)

// ProbeUDP sends a single probe datagram and waits for a reply within the
// monitor's timeout. UDP is connectionless, so a successful "connect" only
// proves the local route exists — reachability is inherently best-effort
// (§4.A), which is surfaced via UDPMeta rather than a confident verdict.
func ProbeUDP(ctx context.Context, m *models.Monitor) CheckResult {
	addr := hostPort(m.Target, m.Port)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(5 * time.Second)
	}

	start := time.Now()
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		return down(UDPTimeout, err.Error(), time.Since(start))
	}
	defer conn.Close()

	_ = conn.SetDeadline(deadline)
	if _, err := conn.Write([]byte("pulseguard-probe\n")); err != nil {
		return down(UDPTimeout, err.Error(), time.Since(start))
	}

	buf := make([]byte, 512)
	_, err = conn.Read(buf)
	elapsed := time.Since(start)

	meta := UDPMeta{
		Reliability: "best-effort",
		Warning:     "UDP is connectionless; absence of a reply does not conclusively indicate the endpoint is down",
	}

	if err != nil {
		// No reply within the deadline — treat as down per §4.A, but the
		// meta above tells consumers to weight this signal accordingly.
		return CheckResult{
			IsUp:           false,
			ResponseTimeMs: int(elapsed.Milliseconds()),
			ErrorType:      UDPTimeout,
			ErrorMessage:   Message("UDP", UDPTimeout, 0, "no reply within timeout"),
			Meta:           meta,
		}
	}

	return CheckResult{IsUp: true, ResponseTimeMs: int(elapsed.Milliseconds()), Meta: meta}
}
