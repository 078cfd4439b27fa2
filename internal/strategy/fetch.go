package strategy

import (
	"context"
	"io"
	"net/http"

	"github.com/relaygate/relaygate/internal/gatewaylog"
	"github.com/relaygate/relaygate/internal/gerrors"
	"github.com/relaygate/relaygate/internal/headers"
)

// Fetch delegates to net/http, standing in for the host runtime's
// high-level HTTP client (spec.md §4.9 "Fetch").
type Fetch struct{}

func (f *Fetch) Connect(ctx context.Context, w http.ResponseWriter, r *http.Request, dst DestinationURL) error {
	if dst.IsWebSocket() {
		return gerrors.NewClientError("fetch-connect", "Fetch transport does not support WebSocket")
	}

	outbound, err := http.NewRequestWithContext(ctx, r.Method, dst.String(), r.Body)
	if err != nil {
		return gerrors.NewUpstreamError("fetch-build-request", dst.Host, err)
	}
	outbound.Header = headers.Sanitize(r.Header)
	outbound.Header.Set("Host", dst.Host)
	outbound.Header.Set("Accept-Encoding", "identity")

	resp, err := http.DefaultClient.Do(outbound)
	if err != nil {
		return gerrors.NewUpstreamError("fetch-do", dst.Host, err)
	}
	defer resp.Body.Close()

	for k, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		gatewaylog.Error().Err(err).Str("host", dst.Host).Msg("fetch body copy failed")
	}
	return nil
}

// HandleDNSQuery is unsupported on this transport (spec.md §7).
func (f *Fetch) HandleDNSQuery(ctx context.Context, w http.ResponseWriter, r *http.Request, kind DNSKind) error {
	return unsupportedDNS("fetch-dns")
}
