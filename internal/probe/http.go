package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/ysicing/pulseguard/internal/models"
)

const maxRedirects = 10

// ProbeHTTP issues a GET (or HEAD, when configured) following up to
// maxRedirects redirects, classifying the final response per §4.A.
func ProbeHTTP(ctx context.Context, m *models.Monitor) CheckResult {
	method := m.HTTPMethod
	if method == "" {
		method = http.MethodGet
	}

	hops := 0
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			hops = len(via)
			if hops >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, method, m.Target, nil)
	if err != nil {
		return down(InvalidURL, err.Error(), 0)
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		if errType, msg, ok := classifyHTTPTransportError(err); ok {
			return down(errType, msg, elapsed)
		}
		return down(ConnectionRefused, err.Error(), elapsed)
	}
	defer resp.Body.Close()

	if hops >= maxRedirects {
		return down(HTTPRedirect, fmt.Sprintf("exceeded %d redirects", maxRedirects), elapsed)
	}

	isUp, errType := ClassifyHTTPStatus(resp.StatusCode)
	status := resp.StatusCode
	meta := HTTPMeta{FinalURL: resp.Request.URL.String(), RedirectHops: hops}

	if !isUp {
		return CheckResult{
			IsUp:           false,
			ResponseTimeMs: int(elapsed.Milliseconds()),
			StatusCode:     &status,
			ErrorType:      errType,
			ErrorMessage:   Message("HTTP", errType, status, ""),
			Meta:           meta,
		}
	}

	return CheckResult{
		IsUp:           true,
		ResponseTimeMs: int(elapsed.Milliseconds()),
		StatusCode:     &status,
		ErrorType:      errType,
		Meta:           meta,
	}
}

// classifyHTTPTransportError propagates TLS handshake failures into the SSL
// error types per §4.A ("On TLS handshake failure propagate SSL error
// types"), and network-level failures into CONNECTION_REFUSED/TIMEOUT.
func classifyHTTPTransportError(err error) (ErrorType, string, bool) {
	var certErr *tls.CertificateVerificationError
	var hostErr x509.HostnameError
	var unknownAuthority x509.UnknownAuthorityError

	switch {
	case errors.As(err, &certErr):
		return SSLInvalid, err.Error(), true
	case errors.As(err, &hostErr):
		return CertHostnameMismatch, err.Error(), true
	case errors.As(err, &unknownAuthority):
		return CertUntrusted, err.Error(), true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Timeout, err.Error(), true
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return ConnectionRefused, err.Error(), true
	}

	return ErrNone, "", false
}
