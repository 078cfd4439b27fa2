package headers

import (
	"net/http"
	"testing"
)

func TestSanitizeStripsDeniedHeaders(t *testing.T) {
	src := http.Header{}
	src.Set("Host", "internal.example")
	src.Set("Accept-Encoding", "gzip")
	src.Set("CF-Connecting-IP", "1.2.3.4")
	src.Set("CDN-Loop", "cloudflare")
	src.Set("Referer", "https://example.com")
	src.Set("Referrer-Policy", "no-referrer")
	src.Set("Authorization", "Bearer token")
	src.Set("X-Custom", "keep-me")

	out := Sanitize(src)

	for _, denied := range []string{"Host", "Accept-Encoding", "Cf-Connecting-Ip", "Cdn-Loop", "Referer", "Referrer-Policy"} {
		if v := out.Get(denied); v != "" {
			t.Errorf("expected %q to be stripped, got %q", denied, v)
		}
	}

	if out.Get("Authorization") != "Bearer token" {
		t.Error("Authorization should pass through unchanged")
	}
	if out.Get("X-Custom") != "keep-me" {
		t.Error("X-Custom should pass through unchanged")
	}
}
