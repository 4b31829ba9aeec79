// Package clientip resolves the originating client address of an HTTP
// request behind reverse proxies. Login throttling and audit records
// key on this address, so resolution prefers trusted proxy headers
// over the TCP peer.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// proxyHeaders are consulted in order; the first header carrying a
// valid address wins. X-Forwarded-For may hold a comma-separated
// chain, in which case the leftmost valid entry is the client.
var proxyHeaders = []string{"CF-Connecting-IP", "True-Client-IP", "X-Forwarded-For", "X-Real-IP"}

// GetIP returns the client address for the request, falling back to
// RemoteAddr when no proxy header carries a valid IP. The result is a
// normalized textual address, or "" when nothing parses.
func GetIP(r *http.Request) string {
	for _, h := range proxyHeaders {
		for candidate := range strings.SplitSeq(r.Header.Get(h), ",") {
			if ip := normalize(candidate); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return normalize(r.RemoteAddr)
	}
	return normalize(host)
}

func normalize(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
