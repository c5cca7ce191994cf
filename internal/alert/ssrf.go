package alert

import (
	"context"
	"fmt"
	"net"
	"net/url"
)

// validateOutboundURL rejects Slack/webhook targets that could be used to
// reach internal infrastructure (§4.F: "Slack/webhook URLs rejected if they
// resolve to private/loopback/link-local"). No example repository in the
// retrieval pack implements an SSRF guard, and address-range classification
// is exactly what net.IP already provides, so this stays on the standard
// library rather than reaching for a third-party dependency that would add
// nothing over net.IP.Is*.
func validateOutboundURL(ctx context.Context, raw string) error {
	if raw == "" {
		return fmt.Errorf("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.User != nil {
		return fmt.Errorf("credential-embedded urls are rejected")
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("url has no host")
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(ips) == 0 {
		return fmt.Errorf("%s did not resolve to any address", host)
	}
	for _, addr := range ips {
		if err := rejectUnsafeIP(addr.IP); err != nil {
			return err
		}
	}
	return nil
}

func rejectUnsafeIP(ip net.IP) error {
	switch {
	case ip.IsLoopback():
		return fmt.Errorf("address %s is loopback", ip)
	case ip.IsLinkLocalUnicast(), ip.IsLinkLocalMulticast():
		return fmt.Errorf("address %s is link-local", ip)
	case ip.IsPrivate():
		return fmt.Errorf("address %s is private", ip)
	case ip.IsMulticast():
		return fmt.Errorf("address %s is multicast", ip)
	case ip.IsUnspecified():
		return fmt.Errorf("address %s is unspecified", ip)
	default:
		return nil
	}
}
