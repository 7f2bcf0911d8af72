// Package security guards outbound HTTP from HydroSnap.
//
// The alert webhook URL comes from configuration, but a compromised
// parameter store or a hostile redirect must still not be able to point
// alert traffic at the instance metadata service or the private network.
// The guarded client resolves every host itself and refuses to dial when any
// resolved address falls in a blocked range.
package security

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// dnsTimeout bounds host resolution before a dial.
const dnsTimeout = 500 * time.Millisecond

var (
	// ErrBlocked is returned when a request targets a blocked range.
	ErrBlocked = errors.New("outbound: destination in blocked range")
	// ErrDNSTimeout is returned when resolution exceeds dnsTimeout.
	ErrDNSTimeout = errors.New("outbound: DNS resolution timeout")
	// ErrDNSFailed is returned when resolution fails or yields nothing.
	ErrDNSFailed = errors.New("outbound: DNS resolution failed")
	// ErrTooManyRedirects is returned past the redirect limit.
	ErrTooManyRedirects = errors.New("outbound: too many redirects")
)

// BlockedCIDRs are the ranges outbound alert traffic may never reach:
// loopback, RFC 1918, link-local (cloud metadata), CGNAT, benchmarking,
// multicast and reserved space, plus the IPv6 equivalents.
var BlockedCIDRs = []string{
	"0.0.0.0/8",
	"10.0.0.0/8",
	"100.64.0.0/10",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"198.18.0.0/15",
	"224.0.0.0/4",
	"240.0.0.0/4",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
}

var blockedNets = mustParseCIDRs(BlockedCIDRs)

func mustParseCIDRs(cidrs []string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			panic(fmt.Sprintf("security: bad CIDR %q: %v", c, err))
		}
		nets = append(nets, n)
	}
	return nets
}

// IsBlocked reports whether ip lies in a blocked range.
func IsBlocked(ip net.IP) bool {
	for _, n := range blockedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Resolver abstracts DNS resolution for tests.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Guard validates destinations before they are dialed.
type Guard struct {
	resolver Resolver
	dialer   *net.Dialer
}

// NewGuard creates a Guard. A nil resolver uses net.DefaultResolver.
func NewGuard(resolver Resolver) *Guard {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &Guard{resolver: resolver, dialer: &net.Dialer{Timeout: 5 * time.Second}}
}

// Resolve returns the addresses of host, failing if any is blocked. Every
// address is checked so a rebinding answer that mixes public and private
// addresses is refused as a whole.
func (g *Guard) Resolve(ctx context.Context, host string) ([]net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if IsBlocked(ip) {
			return nil, fmt.Errorf("%w: %s", ErrBlocked, ip)
		}
		return []net.IP{ip}, nil
	}

	dnsCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	addrs, err := g.resolver.LookupIPAddr(dnsCtx, host)
	if err != nil {
		if dnsCtx.Err() != nil {
			return nil, fmt.Errorf("%w: host %q", ErrDNSTimeout, host)
		}
		return nil, fmt.Errorf("%w: host %q: %v", ErrDNSFailed, host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: host %q resolved to no addresses", ErrDNSFailed, host)
	}

	ips := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		if IsBlocked(a.IP) {
			return nil, fmt.Errorf("%w: %s (resolved from %s)", ErrBlocked, a.IP, host)
		}
		ips = append(ips, a.IP)
	}
	return ips, nil
}

// DialContext resolves and checks addr, then dials the first address.
func (g *Guard) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("outbound: invalid address %q: %w", addr, err)
	}
	ips, err := g.Resolve(ctx, host)
	if err != nil {
		return nil, err
	}
	return g.dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].String(), port))
}

// CheckRedirect returns an http.Client CheckRedirect that enforces the
// redirect limit and checks every redirect target.
func (g *Guard) CheckRedirect(maxRedirects int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("%w: limit is %d", ErrTooManyRedirects, maxRedirects)
		}
		host := req.URL.Hostname()
		if host == "" {
			return fmt.Errorf("%w: redirect URL has no host", ErrBlocked)
		}
		_, err := g.Resolve(req.Context(), host)
		return err
	}
}

// NewHTTPClient returns a client whose every connection and redirect passes
// through guard. A nil guard uses NewGuard(nil).
func NewHTTPClient(guard *Guard, timeout time.Duration, maxRedirects int) *http.Client {
	if guard == nil {
		guard = NewGuard(nil)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = guard.DialContext
	transport.Proxy = nil

	return &http.Client{
		Transport:     transport,
		Timeout:       timeout,
		CheckRedirect: guard.CheckRedirect(maxRedirects),
	}
}
