package probe

import (
	"context"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/ysicing/pulseguard/internal/models"
)

// ProbePing sends a single ICMP echo request with the monitor's timeout
// (§4.A). Requires CAP_NET_RAW or an unprivileged-ICMP-enabled kernel; the
// library falls back to a UDP-based ping where supported.
func ProbePing(ctx context.Context, m *models.Monitor) CheckResult {
	pinger, err := probing.NewPinger(m.Target)
	if err != nil {
		return down(PingHostUnreachable, err.Error(), 0)
	}
	pinger.Count = 1
	pinger.Timeout = time.Duration(m.TimeoutMs) * time.Millisecond

	start := time.Now()
	err = pinger.RunWithContext(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return down(PingHostUnreachable, err.Error(), elapsed)
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return down(PingTimeout, "no echo reply received", elapsed)
	}

	return up(stats.AvgRtt, nil)
}
