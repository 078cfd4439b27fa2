package gerrors

import (
	"errors"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindClient, http.StatusBadRequest},
		{KindUnsupported, http.StatusNotImplemented},
		{KindUpstream, http.StatusInternalServerError},
		{KindGateway, http.StatusBadGateway},
		{KindRestrictedNetwork, http.StatusInternalServerError},
	}
	for _, c := range cases {
		e := &Error{Kind: c.kind}
		if got := e.HTTPStatus(); got != c.want {
			t.Errorf("Kind %s: HTTPStatus() = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestIsRestrictedNetwork(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"dial tcp: connection failed", true},
		{"read tcp: timed out", true},
		{"TCP Loop detected for this address", true},
		{"Connections to port 25 are prohibited by policy", true},
		{"completely unrelated failure", false},
	}
	for _, c := range cases {
		if got := IsRestrictedNetwork(errors.New(c.msg)); got != c.want {
			t.Errorf("IsRestrictedNetwork(%q) = %v, want %v", c.msg, got, c.want)
		}
	}
}

func TestAsRestrictedNetwork(t *testing.T) {
	if err := AsRestrictedNetwork("op", errors.New("ordinary failure")); err != nil {
		t.Fatalf("expected nil for a non-matching error, got %v", err)
	}

	err := AsRestrictedNetwork("connect", errors.New("proxy request failed upstream"))
	if err == nil {
		t.Fatal("expected a classified error")
	}
	if err.Kind != KindRestrictedNetwork {
		t.Errorf("Kind = %s, want %s", err.Kind, KindRestrictedNetwork)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	e := NewUpstreamError("dial", "example.com", cause)
	if !errors.Is(e, cause) {
		t.Error("errors.Is should see through Unwrap to the cause")
	}
}
