// Package controller implements the dispatch & fallback controller
// (spec.md §4.1): it classifies the inbound request's URL into a
// destination, selects a transport, and recovers from restricted-network
// failures by re-issuing through a fallback transport with a preserved
// body clone.
package controller

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/relaygate/relaygate/internal/buffer"
	"github.com/relaygate/relaygate/internal/config"
	"github.com/relaygate/relaygate/internal/gatewaylog"
	"github.com/relaygate/relaygate/internal/gerrors"
	"github.com/relaygate/relaygate/internal/metrics"
	"github.com/relaygate/relaygate/internal/strategy"
)

// Controller dispatches every non-/metrics, non-/healthz request (spec.md
// §4.1).
type Controller struct {
	cfg *config.Config
}

// New builds a Controller bound to cfg.
func New(cfg *config.Config) *Controller {
	return &Controller{cfg: cfg}
}

func (c *Controller) settings() strategy.Settings {
	return strategy.Settings{
		Socks5Address:      c.cfg.Socks5Address,
		ThirdPartyProxyURL: c.cfg.ThirdPartyProxyURL,
		CloudProviderURL:   c.cfg.CloudProviderURL,
		DNS:                c.cfg.DNS,
	}
}

// ServeHTTP implements the full algorithm of spec.md §4.1.
func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	start := time.Now()
	log := gatewaylog.Logger().With().Str("request_id", reqID).Logger()

	kind, dnsKind, dst := parsePath(r.URL, c.cfg)

	if kind == routeDNS {
		name := dnsTransportName(dnsKind)
		transport, err := strategy.New(name, c.settings())
		if err != nil {
			c.fail(w, reqID, "", start, err)
			return
		}
		if err := transport.HandleDNSQuery(r.Context(), w, r, dnsKind); err != nil {
			log.Error().Err(err).Msg("dns query failed")
			c.fail(w, reqID, name, start, err)
			return
		}
		c.recordSuccess(name, start)
		return
	}

	c.dispatchTransport(w, r, reqID, start, dst)
}

// recordSuccess records the metrics spec.md doesn't specify but
// SPEC_FULL.md §C.1 does: a 2xx counter increment and the request's
// end-to-end duration, both keyed by the strategy that actually served it.
func (c *Controller) recordSuccess(strategyName string, start time.Time) {
	metrics.RequestsTotal.WithLabelValues(strategyName, "2xx").Inc()
	metrics.RequestDuration.WithLabelValues(strategyName).Observe(time.Since(start).Seconds())
}

type routeKind int

const (
	routeTransport routeKind = iota
	routeDNS
)

func dnsTransportName(kind strategy.DNSKind) string {
	if kind == strategy.DNSKindDoT {
		return "dot"
	}
	return "doh"
}

// dispatchTransport implements spec.md §4.1 steps 3-5: instantiate the
// configured transport, clone the body if it may need a fallback retry,
// attempt it, and re-issue through the fallback on a restricted-network
// classification.
func (c *Controller) dispatchTransport(w http.ResponseWriter, r *http.Request, reqID string, start time.Time, dst strategy.DestinationURL) {
	primaryName := c.cfg.ProxyStrategy
	transport, err := strategy.New(primaryName, c.settings())
	if err != nil {
		c.fail(w, reqID, primaryName, start, err)
		return
	}

	var fallbackBody io.ReadCloser
	if strings.EqualFold(primaryName, "socket") && r.Body != nil {
		primary, fallback, cloneable, cloneErr := buffer.CloneBody(r.Body, 0)
		if cloneErr != nil {
			c.fail(w, reqID, primaryName, start, cloneErr)
			return
		}
		r.Body.Close()
		r.Body = primary
		if cloneable {
			fallbackBody = fallback
		}
	}

	err = transport.Connect(r.Context(), w, r, dst)
	if err == nil {
		c.recordSuccess(primaryName, start)
		return
	}

	if fallbackBody != nil {
		if rnErr := gerrors.AsRestrictedNetwork(primaryName+"-connect", err); rnErr != nil {
			gatewaylog.Debug().Str("request_id", reqID).Str("from", primaryName).
				Str("to", c.cfg.FallbackProxyStrategy).Msg("restricted-network error, retrying through fallback")

			r.Body = fallbackBody
			fb, fbErr := strategy.New(c.cfg.FallbackProxyStrategy, c.settings())
			if fbErr != nil {
				c.fail(w, reqID, primaryName, start, fbErr)
				return
			}
			metrics.FallbacksTotal.WithLabelValues(primaryName, c.cfg.FallbackProxyStrategy).Inc()
			if fbConnErr := fb.Connect(r.Context(), w, r, dst); fbConnErr != nil {
				c.fail(w, reqID, c.cfg.FallbackProxyStrategy, start, fbConnErr)
				return
			}
			c.recordSuccess(c.cfg.FallbackProxyStrategy, start)
			return
		}
	}

	c.fail(w, reqID, primaryName, start, err)
}

// fail writes the 500-class error body spec.md §4.1 specifies, annotated
// with the request's correlation id (SPEC_FULL.md §C.3), and records the
// request's outcome counter and end-to-end duration (SPEC_FULL.md §C.1).
func (c *Controller) fail(w http.ResponseWriter, reqID, strategyName string, start time.Time, err error) {
	gatewaylog.Error().Str("request_id", reqID).Str("strategy", strategyName).Err(err).Msg("request failed")

	status := http.StatusInternalServerError
	if ge, ok := err.(*gerrors.Error); ok {
		status = ge.HTTPStatus()
	}
	if strategyName != "" {
		metrics.RequestsTotal.WithLabelValues(strategyName, statusClass(status)).Inc()
		metrics.RequestDuration.WithLabelValues(strategyName).Observe(time.Since(start).Seconds())
	}

	w.WriteHeader(status)
	fmt.Fprintf(w, "Error: %s (request %s)", err.Error(), reqID)
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

// parsePath implements the URL path grammar of spec.md §6 / §4.1 step 1-2.
func parsePath(u *url.URL, cfg *config.Config) (routeKind, strategy.DNSKind, strategy.DestinationURL) {
	segments := splitNonEmpty(u.Path)

	if len(segments) >= 3 && segments[0] == cfg.AuthToken && segments[1] == "dns" {
		switch segments[2] {
		case "doh":
			return routeDNS, strategy.DNSKindDoH, strategy.DestinationURL{}
		case "dot":
			return routeDNS, strategy.DNSKindDoT, strategy.DestinationURL{}
		}
	}

	if len(segments) >= 3 && segments[0] == cfg.AuthToken {
		scheme := strings.TrimSuffix(segments[1], ":")
		host := segments[2]
		path := "/" + strings.Join(segments[3:], "/")
		if u.RawQuery != "" {
			path += "?" + u.RawQuery
		}
		return routeTransport, 0, strategy.DestinationURL{Scheme: scheme, Host: host, Path: path}
	}

	return routeTransport, 0, parseDefaultDst(cfg.DefaultDstURL)
}

func parseDefaultDst(raw string) strategy.DestinationURL {
	parsed, err := url.Parse(raw)
	if err != nil {
		return strategy.DestinationURL{}
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	if parsed.RawQuery != "" {
		path += "?" + parsed.RawQuery
	}
	return strategy.DestinationURL{Scheme: parsed.Scheme, Host: parsed.Host, Path: path}
}

func splitNonEmpty(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
