package novapay

import (
	"context"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/shopstack/novapay-connector/internal/core/domain"
	"github.com/shopstack/novapay-connector/internal/core/ports"
)

// forwardHeaders is the prioritized list of proxy headers inspected for the
// original client IP.
var forwardHeaders = []string{
	"x-forwarded-host",
	"x-forwarded-for",
	"x-real-ip",
	"x-client-ip",
	"x-forwarded",
	"x-cluster-client-ip",
	"forwarded-for",
	"forwarded",
}

// SourceChecker confirms a webhook request originated from the gateway's
// published webhook host.
type SourceChecker struct {
	host     string
	testMode bool
	resolver ports.HostResolver
	log      *zap.Logger
}

// NewSourceChecker creates a source checker for the configured gateway host.
// testMode disables enforcement and must stay off in production.
func NewSourceChecker(host string, testMode bool, resolver ports.HostResolver, log *zap.Logger) *SourceChecker {
	return &SourceChecker{host: host, testMode: testMode, resolver: resolver, log: log}
}

// Validate resolves the gateway host and compares it against the observed
// caller IP. DNS failures are surfaced as errors, not retried here.
func (s *SourceChecker) Validate(ctx context.Context, headers map[string][]string, remoteAddr string) error {
	ips, err := s.resolver.LookupHost(ctx, s.host)
	if err != nil {
		return domain.NewServiceError(domain.ErrGatewayAPI,
			"unable to resolve gateway webhook host "+s.host, "DNS_LOOKUP_FAILED")
	}

	observed := extractClientIP(headers, remoteAddr, ips)
	for _, ip := range ips {
		if observed == ip {
			return nil
		}
	}

	if s.testMode {
		s.log.Warn("webhook source mismatch allowed by test mode",
			zap.String("observed_ip", observed),
			zap.Strings("gateway_ips", ips))
		return nil
	}

	return domain.NewServiceError(domain.ErrUnauthorizedSource,
		"webhook received from unauthorized ip "+observed, "UNAUTHORIZED_SOURCE")
}

// extractClientIP walks the proxy headers in priority order, falling back to
// the raw socket address. For multi-hop comma-separated values, an entry
// matching one of the gateway IPs wins, otherwise the first entry is taken.
func extractClientIP(headers map[string][]string, remoteAddr string, gatewayIPs []string) string {
	h := http.Header(headers)
	for _, name := range forwardHeaders {
		value := h.Get(name)
		if value == "" {
			continue
		}
		entries := strings.Split(value, ",")
		for _, e := range entries {
			candidate := strings.TrimSpace(e)
			for _, ip := range gatewayIPs {
				if candidate == ip {
					return candidate
				}
			}
		}
		return strings.TrimSpace(entries[0])
	}

	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// DNSResolver implements ports.HostResolver with the standard resolver.
type DNSResolver struct{}

func (DNSResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	return net.DefaultResolver.LookupHost(ctx, host)
}
