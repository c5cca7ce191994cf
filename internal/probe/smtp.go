package probe

import (
	"context"
	"net"
	"net/smtp"
	"time"

	"github.com/ysicing/pulseguard/internal/models"
)

// ProbeSMTP dials the target and completes the SMTP greeting/HELO exchange,
// then quits cleanly, per §4.A. It never authenticates or sends mail — a
// successful greeting is the entire liveness signal.
func ProbeSMTP(ctx context.Context, m *models.Monitor) CheckResult {
	addr := hostPort(m.Target, smtpPort(m.Port))

	dialer := &net.Dialer{}
	start := time.Now()

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		elapsed := time.Since(start)
		if ctx.Err() != nil {
			return down(Timeout, err.Error(), elapsed)
		}
		return down(ConnectionRefused, err.Error(), elapsed)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = m.Target
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		elapsed := time.Since(start)
		return down(ProtocolMismatch, err.Error(), elapsed)
	}
	defer client.Close()

	if err := client.Hello("pulseguard"); err != nil {
		elapsed := time.Since(start)
		return down(ProtocolMismatch, err.Error(), elapsed)
	}
	elapsed := time.Since(start)

	_ = client.Quit()
	return up(elapsed, nil)
}

func smtpPort(configured int) int {
	if configured > 0 {
		return configured
	}
	return 25
}
