package controller

import (
	"net/url"
	"testing"

	"github.com/relaygate/relaygate/internal/config"
	"github.com/relaygate/relaygate/internal/strategy"
)

func testConfig() *config.Config {
	return &config.Config{
		AuthToken:     "TOK",
		DefaultDstURL: "https://default.example/fallback",
	}
}

func TestParsePathTransportGrammar(t *testing.T) {
	u, _ := url.Parse("/TOK/https/httpbin.org/get?x=1")
	kind, _, dst := parsePath(u, testConfig())

	if kind != routeTransport {
		t.Fatalf("kind = %v, want routeTransport", kind)
	}
	if dst.Scheme != "https" || dst.Host != "httpbin.org" {
		t.Errorf("dst = %+v", dst)
	}
	if dst.Path != "/get?x=1" {
		t.Errorf("dst.Path = %q, want %q", dst.Path, "/get?x=1")
	}
}

func TestParsePathAcceptsSchemeWithColon(t *testing.T) {
	u, _ := url.Parse("/TOK/https:/httpbin.org/get")
	_, _, dst := parsePath(u, testConfig())
	if dst.Scheme != "https" {
		t.Errorf("Scheme = %q, want %q", dst.Scheme, "https")
	}
}

func TestParsePathTokenMismatchFallsBackToDefault(t *testing.T) {
	u, _ := url.Parse("/WRONG/https/httpbin.org/get")
	_, _, dst := parsePath(u, testConfig())

	if dst.Scheme != "https" || dst.Host != "default.example" || dst.Path != "/fallback" {
		t.Errorf("expected the default destination, got %+v", dst)
	}
}

func TestParsePathEmptyFallsBackToDefault(t *testing.T) {
	u, _ := url.Parse("/")
	_, _, dst := parsePath(u, testConfig())
	if dst.Host != "default.example" {
		t.Errorf("expected the default destination, got %+v", dst)
	}
}

func TestParsePathDNSGrammar(t *testing.T) {
	u, _ := url.Parse("/TOK/dns/doh")
	kind, dnsKind, _ := parsePath(u, testConfig())
	if kind != routeDNS {
		t.Fatalf("kind = %v, want routeDNS", kind)
	}
	if dnsKind != strategy.DNSKindDoH {
		t.Errorf("dnsKind = %v, want DNSKindDoH", dnsKind)
	}
}

func TestParsePathDNSGrammarDoT(t *testing.T) {
	u, _ := url.Parse("/TOK/dns/dot/optional-server-segment")
	kind, dnsKind, _ := parsePath(u, testConfig())
	if kind != routeDNS || dnsKind != strategy.DNSKindDoT {
		t.Errorf("kind=%v dnsKind=%v, want routeDNS/DNSKindDoT", kind, dnsKind)
	}
}

func TestParsePathDNSGrammarTokenMismatchFallsThrough(t *testing.T) {
	u, _ := url.Parse("/WRONG/dns/doh")
	kind, _, dst := parsePath(u, testConfig())
	if kind != routeTransport {
		t.Fatalf("kind = %v, want routeTransport for a token mismatch", kind)
	}
	if dst.Host != "default.example" {
		t.Errorf("expected default destination, got %+v", dst)
	}
}
