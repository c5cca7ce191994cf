package probe

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/ysicing/pulseguard/internal/models"
)

// ProbeSSL performs a bare TLS handshake against (host, port) and reports
// certificate validity rather than any application-layer response (§4.A).
// It is the dedicated counterpart to the TLS-handshake-failure propagation
// ProbeHTTP already does inline for HTTPS targets.
func ProbeSSL(ctx context.Context, m *models.Monitor) CheckResult {
	addr := hostPort(m.Target, m.Port)
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = m.Target
	}

	dialer := &net.Dialer{}
	start := time.Now()

	rawConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		elapsed := time.Since(start)
		if ctx.Err() != nil {
			return down(Timeout, err.Error(), elapsed)
		}
		return down(ConnectionRefused, err.Error(), elapsed)
	}
	defer rawConn.Close()

	tlsConn := tls.Client(rawConn, &tls.Config{ServerName: host})
	tlsConn.SetDeadline(time.Now().Add(time.Duration(m.TimeoutMs) * time.Millisecond))

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		elapsed := time.Since(start)
		return down(classifyTLSHandshakeError(err), err.Error(), elapsed)
	}
	elapsed := time.Since(start)

	state := tlsConn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return down(SSLInvalid, "no peer certificates presented", elapsed)
	}
	cert := state.PeerCertificates[0]

	now := time.Now()
	daysRemaining := int(cert.NotAfter.Sub(now).Hours() / 24)

	meta := SSLMeta{
		NotBefore:     cert.NotBefore,
		NotAfter:      cert.NotAfter,
		DaysRemaining: daysRemaining,
		Issuer:        cert.Issuer.CommonName,
		SelfSigned:    cert.Issuer.CommonName == cert.Subject.CommonName,
	}

	if now.After(cert.NotAfter) {
		return down(CertHasExpired, Message("SSL", CertHasExpired, 0, ""), elapsed)
	}
	if now.Before(cert.NotBefore) {
		return down(CertNotYetValid, Message("SSL", CertNotYetValid, 0, ""), elapsed)
	}

	return up(elapsed, meta)
}

func classifyTLSHandshakeError(err error) ErrorType {
	if errType, _, ok := classifyHTTPTransportError(err); ok {
		return errType
	}
	return SSLInvalid
}
