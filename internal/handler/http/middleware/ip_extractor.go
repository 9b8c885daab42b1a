package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// IPExtractor returns the client address a request is attributed to.
type IPExtractor interface {
	ExtractIP(r *http.Request) (string, error)
}

// RemoteAddrExtractor uses the TCP peer address and ignores forwarding headers.
// It is the right choice when PipeHub is reachable without a reverse proxy.
type RemoteAddrExtractor struct{}

// ExtractIP strips the port from r.RemoteAddr.
//
// Examples:
//   - "192.168.1.1:54321" → "192.168.1.1"
//   - "[2001:db8::1]:8080" → "2001:db8::1"
func (RemoteAddrExtractor) ExtractIP(r *http.Request) (string, error) {
	return extractIPFromAddr(r.RemoteAddr)
}

// TrustedProxies lists the reverse proxies whose forwarding headers are believed.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies parses IP addresses and CIDR ranges. A bare address
// becomes a /32 or /128 prefix. Blank entries are skipped.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	proxies := make(TrustedProxies, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		prefix, err := netip.ParsePrefix(entry)
		if err != nil {
			addr, addrErr := netip.ParseAddr(entry)
			if addrErr != nil {
				return nil, fmt.Errorf("invalid IP or CIDR %q", entry)
			}
			prefix = netip.PrefixFrom(addr, addr.BitLen())
		}
		proxies = append(proxies, prefix.Masked())
	}
	return proxies, nil
}

// Contains reports whether ip belongs to a trusted proxy.
func (t TrustedProxies) Contains(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range t {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// TrustedProxyExtractor reads X-Forwarded-For and X-Real-IP, but only when the
// TCP peer is a trusted proxy. Headers from any other peer are ignored, so a
// client cannot choose its own address by sending them.
//
// X-Forwarded-For is walked from the right: every trusted proxy appends the
// address it received from, and the first hop that is not itself a trusted
// proxy is the client. Entries left of that hop were written by the client.
type TrustedProxyExtractor struct {
	proxies TrustedProxies
	logger  *slog.Logger
}

// NewIPExtractor returns a RemoteAddrExtractor when no proxy is trusted and a
// TrustedProxyExtractor otherwise.
func NewIPExtractor(proxies TrustedProxies, logger *slog.Logger) IPExtractor {
	if len(proxies) == 0 {
		return RemoteAddrExtractor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TrustedProxyExtractor{proxies: proxies, logger: logger}
}

// ExtractIP implements IPExtractor.
func (e *TrustedProxyExtractor) ExtractIP(r *http.Request) (string, error) {
	peer, err := extractIPFromAddr(r.RemoteAddr)
	if err != nil {
		return "", err
	}

	xff := r.Header.Get("X-Forwarded-For")
	xri := r.Header.Get("X-Real-IP")

	if !e.proxies.Contains(peer) {
		if xff != "" || xri != "" {
			e.logger.Debug("ignoring forwarding headers from untrusted peer",
				slog.String("remote_addr", peer))
		}
		return peer, nil
	}

	if xff != "" {
		if ip, ok := e.clientFromForwardedFor(xff); ok {
			return ip, nil
		}
	}

	if ip := net.ParseIP(strings.TrimSpace(xri)); ip != nil {
		return ip.String(), nil
	}

	return peer, nil
}

// clientFromForwardedFor returns the rightmost hop that is not a trusted proxy.
func (e *TrustedProxyExtractor) clientFromForwardedFor(xff string) (string, bool) {
	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			return "", false
		}
		if !e.proxies.Contains(ip.String()) {
			return ip.String(), true
		}
	}
	return "", false
}

// extractIPFromAddr extracts the IP from a "host:port" or bare IP string.
func extractIPFromAddr(addr string) (string, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		if ip := net.ParseIP(addr); ip != nil {
			return ip.String(), nil
		}
		return "", fmt.Errorf("invalid address format: %s", addr)
	}
	return host, nil
}
