package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/ysicing/pulseguard/internal/models"
)

// ProbeTCP opens a socket to (host, port) with the monitor's timeout (§4.A).
func ProbeTCP(ctx context.Context, m *models.Monitor) CheckResult {
	addr := hostPort(m.Target, m.Port)

	start := time.Now()
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return down(ConnectionRefused, err.Error(), elapsed)
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return down(Timeout, err.Error(), elapsed)
		}
		if ctx.Err() != nil {
			return down(Timeout, fmt.Sprintf("dial %s: %v", addr, ctx.Err()), elapsed)
		}
		return down(ConnectionRefused, err.Error(), elapsed)
	}
	_ = conn.Close()
	return up(elapsed, nil)
}

// hostPort joins a target and an optional explicit port into a dial address.
// If target already carries a port (host:port) and port is 0, target is
// used as-is.
func hostPort(target string, port int) string {
	if port <= 0 {
		return target
	}
	if h, _, err := net.SplitHostPort(target); err == nil {
		return net.JoinHostPort(h, fmt.Sprint(port))
	}
	return net.JoinHostPort(target, fmt.Sprint(port))
}
