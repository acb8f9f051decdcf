// Package clientip extracts the address used to key rate limits and
// request logs.
package clientip

import (
	"net/http"
	"net/netip"
	"strings"
)

// RealClientIP returns the canonical client address for r, read from
// r.RemoteAddr. Proxy headers are ignored here; chi's RealIP middleware
// rewrites RemoteAddr when the service runs behind a trusted proxy.
//
// IPv4-mapped IPv6 addresses are unmapped and zones dropped, so one client
// always maps to one limiter bucket. Unparsable values are returned trimmed.
func RealClientIP(r *http.Request) string {
	raw := strings.TrimSpace(r.RemoteAddr)
	if addr, ok := parse(raw); ok {
		return addr.String()
	}
	return raw
}

func parse(raw string) (netip.Addr, bool) {
	if ap, err := netip.ParseAddrPort(raw); err == nil {
		return canonical(ap.Addr()), true
	}
	if addr, err := netip.ParseAddr(strings.Trim(raw, "[]")); err == nil {
		return canonical(addr), true
	}
	return netip.Addr{}, false
}

func canonical(addr netip.Addr) netip.Addr {
	return addr.Unmap().WithZone("")
}
