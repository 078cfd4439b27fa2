// Package headers implements the header sanitizer (spec.md §4.2): strip
// hop-by-hop and environment-leaking headers before a request is forwarded
// upstream.
package headers

import (
	"net/http"
	"regexp"
)

// denyPattern matches header names that must never be copied upstream
// verbatim (spec.md §3 invariants): Host, Accept-Encoding, and anything
// that leaks the edge/CDN layer the gateway is running behind.
var denyPattern = regexp.MustCompile(`(?i)^(host|accept-encoding|cf-|cdn-|referer|referrer)`)

// Sanitize returns a new header collection containing only the headers of
// src whose lower-cased name does not match denyPattern. Callers are
// responsible for adding Host and any transport-specific headers
// afterward.
func Sanitize(src http.Header) http.Header {
	out := make(http.Header, len(src))
	for key, values := range src {
		if denyPattern.MatchString(key) {
			continue
		}
		for _, v := range values {
			out.Add(key, v)
		}
	}
	return out
}
