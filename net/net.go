/*
Package net provides helpers to inspect the network origin of requests,
used by the toggle predicates working with client addresses and
protocols.
*/
package net

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"go4.org/netipx"
)

// strip port from addresses with hostname, ipv4 or ipv6
func stripPort(address string) string {
	if h, _, err := net.SplitHostPort(address); err == nil {
		return h
	}

	return address
}

func parseAddr(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(stripPort(strings.TrimSpace(s)))
	return addr, err == nil
}

// ClientAddr returns the address of the peer connection, ignoring the
// X-Forwarded-For header. The returned address is invalid when the
// remote address of the request cannot be parsed.
func ClientAddr(r *http.Request) netip.Addr {
	addr, _ := parseAddr(r.RemoteAddr)
	return addr
}

// RemoteAddr returns the remote address of the client. When the
// 'X-Forwarded-For' header is set, then its first entry is used instead.
// This is how most often proxies behave.
//
// Example:
//
//	X-Forwarded-For: client, proxy1, proxy2
func RemoteAddr(r *http.Request) netip.Addr {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, ok := parseAddr(first); ok {
			return addr
		}
	}

	return ClientAddr(r)
}

// RemoteAddrFromLast returns the remote address of the client. When
// the 'X-Forwarded-For' header is set, then its last entry is used
// instead. This is known to be true for AWS Application LoadBalancer.
//
// Example:
//
//	X-Forwarded-For: ip-address-1, ip-address-2, client-ip-address
func RemoteAddrFromLast(r *http.Request) netip.Addr {
	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return ClientAddr(r)
	}

	last := xff
	if i := strings.LastIndex(xff, ","); i != -1 {
		last = xff[i+1:]
	}

	if addr, ok := parseAddr(last); ok {
		return addr
	}

	return ClientAddr(r)
}

// Scheme returns "https" when the request was received over TLS, or when
// the X-Forwarded-Proto header says so, and "http" otherwise.
func Scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}

	if strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https") {
		return "https"
	}

	return "http"
}

// IsSecure tells whether the request was received over a secure
// connection, directly or by a proxy in front of the application.
func IsSecure(r *http.Request) bool {
	return Scheme(r) == "https"
}

// ParseIPCIDRs returns a valid IPSet even in case there are parsing
// errors of some partial provided input cidrs. So bogus values can be
// logged and ignored.
func ParseIPCIDRs(cidrs []string) (*netipx.IPSet, error) {
	var (
		b   netipx.IPSetBuilder
		err error
	)

	for _, w := range cidrs {
		if strings.Contains(w, "/") {
			if pref, e := netip.ParsePrefix(w); e != nil {
				err = e
			} else {
				b.AddPrefix(pref)
			}
		} else if addr, e := netip.ParseAddr(w); e != nil {
			err = e
		} else {
			b.Add(addr)
		}
	}

	ips, e := b.IPSet()
	if e != nil {
		return ips, e
	}

	return ips, err
}
