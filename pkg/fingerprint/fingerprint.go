// Package fingerprint names the server-side technology behind a response
// from its headers.
package fingerprint

import (
	"net/http"
	"strings"
)

// Unknown is reported when no identifying header is present.
const Unknown = "Unknown"

// Header names consulted by Identify, in priority order.
const (
	HeaderPoweredBy = "x-powered-by"
	HeaderServer    = "server"
)

// Identify returns the X-Powered-By value if present, else the Server
// value, else Unknown. Header names match case-insensitively. Identify
// never returns "".
func Identify(headers map[string]string) string {
	var poweredBy, server string
	for k, v := range headers {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		switch strings.ToLower(k) {
		case HeaderPoweredBy:
			poweredBy = v
		case HeaderServer:
			server = v
		}
	}

	switch {
	case poweredBy != "":
		return poweredBy
	case server != "":
		return server
	default:
		return Unknown
	}
}

// Headers flattens h to its first value per key, keyed by canonical name.
func Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vals := range h {
		if len(vals) == 0 {
			continue
		}
		out[http.CanonicalHeaderKey(k)] = vals[0]
	}
	return out
}
