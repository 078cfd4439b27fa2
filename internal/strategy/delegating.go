package strategy

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"github.com/relaygate/relaygate/internal/gatewaylog"
	"github.com/relaygate/relaygate/internal/gerrors"
)

// DelegatingTransport implements both ThirdParty and CloudProvider
// (spec.md §4.9): it forwards the original request, unfiltered, to
// {BaseURL}?target={dstUrl} and does not follow redirects itself.
type DelegatingTransport struct {
	BaseURL string
}

// manualRedirectClient never follows a redirect; the 3xx response is
// returned to the caller untouched (spec.md §4.9 "redirect: manual").
var manualRedirectClient = &http.Client{
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func (d *DelegatingTransport) Connect(ctx context.Context, w http.ResponseWriter, r *http.Request, dst DestinationURL) error {
	if dst.IsWebSocket() {
		return gerrors.NewClientError("delegating-connect", "this transport does not support WebSocket")
	}
	if d.BaseURL == "" {
		return gerrors.NewClientError("delegating-connect", "no proxy URL configured for this transport")
	}

	target := d.BaseURL + "?target=" + url.QueryEscape(dst.String())
	outbound, err := http.NewRequestWithContext(ctx, r.Method, target, r.Body)
	if err != nil {
		return gerrors.NewUpstreamError("delegating-build-request", d.BaseURL, err)
	}
	// Headers are forwarded verbatim (spec.md §4.9 "not filtered"); only
	// the non-reusable hop headers net/http itself manages are excluded.
	outbound.Header = r.Header.Clone()

	resp, err := manualRedirectClient.Do(outbound)
	if err != nil {
		return gerrors.NewUpstreamError("delegating-do", d.BaseURL, err)
	}
	defer resp.Body.Close()

	for k, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		gatewaylog.Error().Err(err).Str("base_url", d.BaseURL).Msg("delegating body copy failed")
	}
	return nil
}

// HandleDNSQuery is unsupported on this transport (spec.md §7).
func (d *DelegatingTransport) HandleDNSQuery(ctx context.Context, w http.ResponseWriter, r *http.Request, kind DNSKind) error {
	return unsupportedDNS("delegating-dns")
}
