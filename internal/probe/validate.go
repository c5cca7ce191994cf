package probe

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ysicing/pulseguard/internal/models"
)

// ValidateTarget applies the pre-probe validation rules common to every
// protocol (§4.A), returning a non-nil *CheckResult only when validation
// fails so callers can short-circuit before dispatching to a prober.
func ValidateTarget(protocol models.Protocol, target string, port int) *CheckResult {
	trimmed := strings.TrimSpace(target)
	if trimmed == "" {
		r := down(MissingTarget, "target is empty", 0)
		return &r
	}

	if port != 0 && (port <= 0 || port > 65535) {
		r := down(InvalidURL, fmt.Sprintf("port %d out of range (0, 65535]", port), 0)
		return &r
	}

	switch protocol {
	case models.ProtocolHTTP, models.ProtocolHTTPS:
		return validateURL(protocol, trimmed)
	default:
		// TCP/UDP/DNS/SMTP/SSL/PING take a bare host (optionally host:port);
		// a scheme other than http, https, tcp or udp is a protocol mismatch.
		if strings.Contains(trimmed, "://") {
			scheme := strings.SplitN(trimmed, "://", 2)[0]
			switch scheme {
			case "http", "https", "tcp", "udp":
				// accepted as-is; no further checks are applied
			default:
				r := down(ProtocolMismatch, fmt.Sprintf("scheme %q is not valid for protocol %s", scheme, protocol), 0)
				return &r
			}
		}
		return nil
	}
}

func validateURL(protocol models.Protocol, target string) *CheckResult {
	u, err := url.Parse(target)
	if err != nil {
		r := down(InvalidURL, fmt.Sprintf("malformed URL: %v", err), 0)
		return &r
	}

	switch u.Scheme {
	case "http", "https":
	case "":
		r := down(InvalidURL, "URL is missing a scheme", 0)
		return &r
	default:
		r := down(ProtocolMismatch, fmt.Sprintf("scheme %q is not a valid HTTP(S) scheme", u.Scheme), 0)
		return &r
	}

	if u.Host == "" {
		r := down(MalformedStructure, "URL has no host", 0)
		return &r
	}

	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			r := down(InvalidURL, fmt.Sprintf("port %q out of range (0, 65535]", p), 0)
			return &r
		}
	}

	return nil
}
