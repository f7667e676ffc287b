package supervisor

import (
	"net"
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// matchReady reports whether line contains the readiness marker and, if
// so, extracts the announced address. Servers typically bind to 0.0.0.0
// and print that wildcard in the banner; the wildcard is rewritten to
// displayHost so the address is directly dialable.
func matchReady(line, marker, displayHost string) (string, bool) {
	if marker == "" || !strings.Contains(line, marker) {
		return "", false
	}
	raw := urlPattern.FindString(line)
	if raw == "" {
		return "", true
	}
	parsed, err := url.Parse(strings.TrimRight(raw, ".,;)"))
	if err != nil {
		return "", true
	}
	host := parsed.Hostname()
	port := parsed.Port()
	if isWildcardHost(host) {
		host = displayHost
	}
	if port == "" {
		return host, true
	}
	return net.JoinHostPort(host, port), true
}

func isWildcardHost(host string) bool {
	switch host {
	case "", "0.0.0.0", "::", "[::]":
		return true
	}
	return false
}
