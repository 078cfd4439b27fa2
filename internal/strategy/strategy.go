// Package strategy implements the seven pluggable transport variants
// (spec.md §3 "Transport", §4.3, §4.8, §4.9): Socket, Fetch, Socks5,
// ThirdParty, CloudProvider, DoH, and DoT. Each implements the closed
// capability set { Connect, HandleDNSQuery } the controller dispatches
// against (spec.md §9 "Polymorphism").
package strategy

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/relaygate/relaygate/internal/dnsproxy"
	"github.com/relaygate/relaygate/internal/gerrors"
	"github.com/relaygate/relaygate/internal/socks5"
)

// DNSKind selects which DNS wire transport a DNS-prefixed request asked for
// (spec.md §6 "/{token}/dns/{doh|dot}").
type DNSKind int

const (
	DNSKindDoH DNSKind = iota
	DNSKindDoT
)

// DestinationURL is the parsed target of a forwarded request (spec.md §3
// "destination URL").
type DestinationURL struct {
	Scheme string
	Host   string // host[:port], as taken from the path segment
	Path   string // path + "?" + query, already assembled; always starts with "/"
}

// String reconstructs "scheme://host…path" (spec.md §4.1 step 2).
func (d DestinationURL) String() string {
	return d.Scheme + "://" + d.Host + d.Path
}

// HostPort splits Host into a bare hostname and a port, applying
// defaultPort when Host carries none.
func (d DestinationURL) HostPort(defaultPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(d.Host)
	if err != nil {
		return d.Host, defaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, defaultPort
	}
	return host, port
}

// IsWebSocket reports whether this destination's scheme is one of ws/wss.
func (d DestinationURL) IsWebSocket() bool {
	return d.Scheme == "ws" || d.Scheme == "wss"
}

// Transport is the capability every strategy variant implements (spec.md
// §3). Connect and HandleDNSQuery own the entire response: they write
// status, headers, and body directly to w (or hijack it, for WebSocket).
type Transport interface {
	Connect(ctx context.Context, w http.ResponseWriter, r *http.Request, dst DestinationURL) error
	HandleDNSQuery(ctx context.Context, w http.ResponseWriter, r *http.Request, kind DNSKind) error
}

// Settings bundles every configuration value a transport variant might
// need (spec.md §6). Fields irrelevant to a given variant are ignored.
type Settings struct {
	Socks5Address      string
	ThirdPartyProxyURL string
	CloudProviderURL   string
	DNS                dnsproxy.Config
}

// New instantiates the transport named by name (spec.md §6 PROXY_STRATEGY /
// FALLBACK_PROXY_STRATEGY values).
func New(name string, s Settings) (Transport, error) {
	switch strings.ToLower(name) {
	case "socket", "":
		return &Socket{}, nil
	case "fetch":
		return &Fetch{}, nil
	case "socks5":
		ep, err := socks5.ParseEndpoint(s.Socks5Address)
		if err != nil {
			return nil, err
		}
		return &Socks5Transport{Endpoint: ep}, nil
	case "thirdparty":
		return &DelegatingTransport{BaseURL: s.ThirdPartyProxyURL}, nil
	case "cloudprovider":
		return &DelegatingTransport{BaseURL: s.CloudProviderURL}, nil
	case "doh":
		return &DoH{DNS: s.DNS}, nil
	case "dot":
		return &DoT{DNS: s.DNS}, nil
	default:
		return nil, gerrors.NewClientError("select-strategy", "unknown PROXY_STRATEGY: "+name)
	}
}

// unsupportedDNS is the 501 every non-DNS transport returns for
// HandleDNSQuery (spec.md §7 "Unsupported: default DNS handler on
// non-DNS transports").
func unsupportedDNS(op string) error {
	return gerrors.NewUnsupported(op, "this transport does not implement DNS forwarding")
}
