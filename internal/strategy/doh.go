package strategy

import (
	"context"
	"io"
	"net/http"

	"github.com/relaygate/relaygate/internal/dnsproxy"
	"github.com/relaygate/relaygate/internal/gerrors"
	"github.com/relaygate/relaygate/internal/metrics"
)

// DoH forwards DNS-over-HTTPS queries, preferring a hand-rolled HTTP/1.1
// connection and falling back to net/http on failure (spec.md §4.8
// "DoH-Raw").
type DoH struct {
	DNS dnsproxy.Config
}

// Connect is unsupported: DoH only forwards DNS queries (spec.md §6 DNS
// path is the only entry point for this transport).
func (d *DoH) Connect(ctx context.Context, w http.ResponseWriter, r *http.Request, dst DestinationURL) error {
	return gerrors.NewClientError("doh-connect", "the doh transport only handles DNS queries")
}

func (d *DoH) HandleDNSQuery(ctx context.Context, w http.ResponseWriter, r *http.Request, kind DNSKind) error {
	if err := requireDNSRequest(r); err != nil {
		return err
	}

	query, err := io.ReadAll(r.Body)
	if err != nil {
		return gerrors.NewClientError("doh-read-query", err.Error())
	}

	body, err := dnsproxy.QueryDoHRaw(ctx, d.DNS, query)
	if err != nil {
		fallback, ferr := dnsproxy.QueryDoHFetch(ctx, d.DNS, query)
		if ferr != nil {
			metrics.DNSQueriesTotal.WithLabelValues("doh-raw", "failed").Inc()
			return gerrors.NewGatewayError("doh-fallback", ferr)
		}
		metrics.DNSQueriesTotal.WithLabelValues("doh-fetch", "fallback").Inc()
		body = fallback
	} else {
		metrics.DNSQueriesTotal.WithLabelValues("doh-raw", "ok").Inc()
	}

	w.Header().Set("Content-Type", dnsproxy.DNSMessageContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
	return nil
}

// requireDNSRequest enforces spec.md §4.8's "Both require method = POST and
// Content-Type: application/dns-message".
func requireDNSRequest(r *http.Request) error {
	if r.Method != http.MethodPost {
		return gerrors.NewClientError("dns-request", "DNS queries must use POST")
	}
	if r.Header.Get("Content-Type") != dnsproxy.DNSMessageContentType {
		return gerrors.NewClientError("dns-request", "DNS queries must set Content-Type: application/dns-message")
	}
	return nil
}
