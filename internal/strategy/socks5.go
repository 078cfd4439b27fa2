package strategy

import (
	"context"
	"net/http"

	"github.com/relaygate/relaygate/internal/socks5"
)

// Socks5Transport routes the byte stream through a SOCKS5 proxy before
// speaking the same HTTP/1.1 or WebSocket codec Socket uses directly
// (spec.md §4.6).
type Socks5Transport struct {
	Endpoint *socks5.Endpoint
}

func (s *Socks5Transport) Connect(ctx context.Context, w http.ResponseWriter, r *http.Request, dst DestinationURL) error {
	if dst.IsWebSocket() {
		return s.connectWebSocket(ctx, w, r, dst)
	}
	return s.connectHTTP(ctx, w, r, dst)
}

func (s *Socks5Transport) connectHTTP(ctx context.Context, w http.ResponseWriter, r *http.Request, dst DestinationURL) error {
	host, port := dst.HostPort(defaultPortFor(dst.Scheme))

	conn, err := socks5.Connect(ctx, s.Endpoint, host, port)
	if err != nil {
		return err
	}
	defer conn.Close()

	if dst.Scheme == "https" {
		tlsConn, err := tlsWrap(conn, host)
		if err != nil {
			return err
		}
		conn = tlsConn
	}

	return httpOverConn(w, r, dst, host, conn)
}

func (s *Socks5Transport) connectWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request, dst DestinationURL) error {
	host, port := dst.HostPort(defaultPortFor(dst.Scheme))

	conn, err := socks5.Connect(ctx, s.Endpoint, host, port)
	if err != nil {
		return err
	}

	if dst.Scheme == "wss" {
		tlsConn, err := tlsWrap(conn, host)
		if err != nil {
			conn.Close()
			return err
		}
		conn = tlsConn
	}

	return webSocketOverConn(ctx, w, r, dst, host, conn)
}

// HandleDNSQuery is unsupported on this transport (spec.md §7).
func (s *Socks5Transport) HandleDNSQuery(ctx context.Context, w http.ResponseWriter, r *http.Request, kind DNSKind) error {
	return unsupportedDNS("socks5-dns")
}
