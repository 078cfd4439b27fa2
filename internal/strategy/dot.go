package strategy

import (
	"context"
	"io"
	"net/http"

	"github.com/relaygate/relaygate/internal/dnsproxy"
	"github.com/relaygate/relaygate/internal/gerrors"
	"github.com/relaygate/relaygate/internal/metrics"
)

// DoT forwards DNS-over-TLS queries, falling back to DoH-Fetch on any
// failure (spec.md §4.8 "DoT").
type DoT struct {
	DNS dnsproxy.Config
}

func (d *DoT) Connect(ctx context.Context, w http.ResponseWriter, r *http.Request, dst DestinationURL) error {
	return gerrors.NewClientError("dot-connect", "the dot transport only handles DNS queries")
}

func (d *DoT) HandleDNSQuery(ctx context.Context, w http.ResponseWriter, r *http.Request, kind DNSKind) error {
	if err := requireDNSRequest(r); err != nil {
		return err
	}

	query, err := io.ReadAll(r.Body)
	if err != nil {
		return gerrors.NewClientError("dot-read-query", err.Error())
	}

	body, err := dnsproxy.QueryDoT(ctx, d.DNS, query)
	if err != nil {
		fallback, ferr := dnsproxy.QueryDoHFetch(ctx, d.DNS, query)
		if ferr != nil {
			metrics.DNSQueriesTotal.WithLabelValues("dot", "failed").Inc()
			return gerrors.NewGatewayError("dot-fallback", ferr)
		}
		metrics.DNSQueriesTotal.WithLabelValues("doh-fetch", "fallback").Inc()
		body = fallback
	} else {
		metrics.DNSQueriesTotal.WithLabelValues("dot", "ok").Inc()
	}

	w.Header().Set("Content-Type", dnsproxy.DNSMessageContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
	return nil
}
