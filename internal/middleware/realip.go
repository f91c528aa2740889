package middleware

import (
	"net/http"
	"net/netip"
	"strings"
)

// RealIP rewrites r.RemoteAddr to the client address a trusted reverse
// proxy reported in X-Forwarded-For or X-Real-IP.
//
// The headers are read only when the immediate peer lies inside one of
// trusted; any other peer could write them itself. X-Forwarded-For is
// walked from the right and the first hop outside trusted wins, since
// entries to the left of it were supplied by the client. With no trusted
// prefixes the middleware leaves every request alone.
func RealIP(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ip, ok := forwardedClient(r, trusted); ok {
				r.RemoteAddr = ip.String()
			}
			next.ServeHTTP(w, r)
		})
	}
}

func forwardedClient(r *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	peer, ok := parseAddr(r.RemoteAddr)
	if !ok || !inPrefixes(peer, trusted) {
		return netip.Addr{}, false
	}

	if values := r.Header.Values("X-Forwarded-For"); len(values) > 0 {
		hops := strings.Split(strings.Join(values, ","), ",")
		var leftmost netip.Addr
		for i := len(hops) - 1; i >= 0; i-- {
			hop, ok := parseAddr(strings.TrimSpace(hops[i]))
			if !ok {
				return netip.Addr{}, false
			}
			if !inPrefixes(hop, trusted) {
				return hop, true
			}
			leftmost = hop
		}
		// Every hop is one of our own proxies.
		return leftmost, true
	}

	if hop, ok := parseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ok {
		return hop, true
	}
	return netip.Addr{}, false
}

// parseAddr accepts "ip" or "ip:port" and unmaps IPv4-in-IPv6.
func parseAddr(s string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(s); err == nil {
		return ap.Addr().Unmap(), true
	}
	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.Unmap(), true
	}
	return netip.Addr{}, false
}

func inPrefixes(addr netip.Addr, prefixes []netip.Prefix) bool {
	for _, p := range prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
