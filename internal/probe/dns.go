package probe

import (
	"context"
	"net"
	"time"

	"github.com/ysicing/pulseguard/internal/models"
)

// ProbeDNS resolves the monitor's target. An IP literal always resolves
// successfully since it needs no lookup (§4.A). NXDOMAIN / no-records map to
// DNS_NOT_FOUND; any other resolver failure maps to DNS_ERROR.
func ProbeDNS(ctx context.Context, m *models.Monitor) CheckResult {
	target := m.Target

	start := time.Now()

	if ip := net.ParseIP(target); ip != nil {
		return up(time.Since(start), DNSMeta{ResolvedAddrs: []string{ip.String()}})
	}

	resolver := net.DefaultResolver
	addrs, err := resolver.LookupHost(ctx, target)
	elapsed := time.Since(start)
	if err != nil {
		var dnsErr *net.DNSError
		if e, ok := err.(*net.DNSError); ok {
			dnsErr = e
		}
		if dnsErr != nil && dnsErr.IsNotFound {
			return down(DNSNotFound, Message("DNS", DNSNotFound, 0, dnsErr.Error()), elapsed)
		}
		return down(DNSError, Message("DNS", DNSError, 0, err.Error()), elapsed)
	}

	if len(addrs) == 0 {
		return down(DNSNotFound, Message("DNS", DNSNotFound, 0, "resolver returned no records"), elapsed)
	}

	return up(elapsed, DNSMeta{ResolvedAddrs: addrs})
}
