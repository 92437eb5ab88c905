package clientip

import (
	"net"
	"net/http"
	"strings"
)

// FromRequest returns the caller's IP as used for rate limit keys. It reads
// r.RemoteAddr only and never trusts forwarding headers, which any client can set.
// IPv6 zones are dropped and addresses are returned in canonical form.
func FromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	host = strings.TrimSpace(host)
	if i := strings.IndexByte(host, '%'); i >= 0 {
		host = host[:i]
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String()
	}
	return host
}
