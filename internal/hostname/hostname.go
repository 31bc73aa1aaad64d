// Package hostname derives the canonical storefront hostname from request host information.
package hostname

import (
	"net"
	"net/http"
	"strings"
)

// Header names consulted on the alternate header source, in order.
const (
	HeaderForwardedHost = "X-Forwarded-Host"
	HeaderHost          = "Host"
	HeaderOriginalHost  = "X-Original-Host"
)

// HeaderSource is a read-only header bag. http.Header satisfies it.
type HeaderSource interface {
	Get(key string) string
}

// Extract returns the request hostname with any port removed, in its original case.
// A forwarded host set by a reverse proxy wins over the raw host. When both are empty the
// alternate source is consulted. ok is false when no usable host was found; callers resolve
// without a domain hint in that case.
func Extract(host, forwardedHost string, alt HeaderSource) (string, bool) {
	if h := clean(forwardedHost); h != "" {
		return h, true
	}
	if h := clean(host); h != "" {
		return h, true
	}
	if alt != nil {
		for _, key := range []string{HeaderForwardedHost, HeaderHost, HeaderOriginalHost} {
			if h := clean(alt.Get(key)); h != "" {
				return h, true
			}
		}
	}
	return "", false
}

// FromRequest extracts the hostname from r. net/http moves the Host header into r.Host, so the
// raw header bag only serves as the alternate source.
func FromRequest(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	return Extract(r.Host, r.Header.Get(HeaderForwardedHost), r.Header)
}

// clean takes the first entry of a comma-separated proxy chain and strips the port. IPv6
// literals lose their brackets with or without a port.
func clean(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(v); err == nil {
		return h
	}
	return unbracket(v)
}

func unbracket(v string) string {
	if len(v) > 2 && v[0] == '[' && v[len(v)-1] == ']' {
		return v[1 : len(v)-1]
	}
	return v
}
