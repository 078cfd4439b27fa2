// Package metrics registers the gateway's Prometheus collectors and exposes
// the /metrics handler (SPEC_FULL.md §C.1).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts forwarded requests by the transport that served
	// them and the final outcome status class.
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relaygate_requests_total",
		Help: "Total forwarded requests by transport and status class.",
	}, []string{"strategy", "status_class"})

	// FallbacksTotal counts re-issues through the fallback transport after
	// a restricted-network classification (spec.md §4.1 step 5).
	FallbacksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relaygate_fallbacks_total",
		Help: "Total requests re-issued through the fallback transport.",
	}, []string{"from_strategy", "to_strategy"})

	// DNSQueriesTotal counts DNS queries by wire transport and outcome.
	DNSQueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relaygate_dns_queries_total",
		Help: "Total DNS queries by transport and outcome.",
	}, []string{"transport", "outcome"})

	// WebSocketFramesTotal counts relayed WebSocket frames by direction and
	// opcode.
	WebSocketFramesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relaygate_websocket_frames_total",
		Help: "Total WebSocket frames relayed by direction and opcode.",
	}, []string{"direction", "opcode"})

	// RequestDuration tracks end-to-end request latency by transport,
	// superseding the teacher's hand-rolled phase-by-phase timing.Timer
	// with a standard Prometheus histogram (see DESIGN.md).
	RequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relaygate_request_duration_seconds",
		Help:    "End-to-end request duration by transport.",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})
)

func init() {
	prometheus.MustRegister(RequestsTotal, FallbacksTotal, DNSQueriesTotal, WebSocketFramesTotal, RequestDuration)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
