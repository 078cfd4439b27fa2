package strategy

import (
	"bufio"
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/http"

	"github.com/coder/websocket"

	"github.com/relaygate/relaygate/internal/bytestream"
	"github.com/relaygate/relaygate/internal/gatewaylog"
	"github.com/relaygate/relaygate/internal/gerrors"
	"github.com/relaygate/relaygate/internal/headers"
	"github.com/relaygate/relaygate/internal/httpcodec"
	"github.com/relaygate/relaygate/internal/tlsconfig"
	"github.com/relaygate/relaygate/internal/wsclient"
	"github.com/relaygate/relaygate/internal/wsrelay"
)

// Socket is the raw-byte-stream transport (spec.md §4.3): it dials TCP or
// TLS directly and speaks HTTP/1.1 or the WebSocket handshake itself rather
// than delegating to a higher-level HTTP client.
type Socket struct{}

// Connect implements both the HTTP path and the WebSocket path of spec.md
// §4.3, branching on dst.IsWebSocket().
func (s *Socket) Connect(ctx context.Context, w http.ResponseWriter, r *http.Request, dst DestinationURL) error {
	if dst.IsWebSocket() {
		return s.connectWebSocket(ctx, w, r, dst)
	}
	return s.connectHTTP(ctx, w, r, dst)
}

func (s *Socket) connectHTTP(ctx context.Context, w http.ResponseWriter, r *http.Request, dst DestinationURL) error {
	host, port := dst.HostPort(defaultPortFor(dst.Scheme))

	conn, err := bytestream.Dial(ctx, host, port, dst.Scheme == "https", false, false)
	if err != nil {
		return err
	}
	defer conn.Close()

	return httpOverConn(w, r, dst, host, conn)
}

func (s *Socket) connectWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request, dst DestinationURL) error {
	host, port := dst.HostPort(defaultPortFor(dst.Scheme))

	conn, err := bytestream.Dial(ctx, host, port, dst.Scheme == "wss", false, false)
	if err != nil {
		return err
	}

	return webSocketOverConn(ctx, w, r, dst, host, conn)
}

// httpOverConn writes the request and streams the response over an
// already-established connection (spec.md §4.3 HTTP path steps 1-5).
func httpOverConn(w http.ResponseWriter, r *http.Request, dst DestinationURL, host string, conn net.Conn) error {
	header := headers.Sanitize(r.Header)
	header.Set("Host", host)
	header.Set("Accept-Encoding", "identity")

	req := &httpcodec.Request{
		Method: r.Method,
		Path:   dst.Path,
		Host:   host,
		Header: header,
		Body:   r.Body,
	}
	if err := httpcodec.Write(conn, req); err != nil {
		return gerrors.NewUpstreamError("socket-http-write", host, err)
	}

	resp, err := httpcodec.ReadResponse(bufio.NewReader(conn), r.Method)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	for k, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	// Once the status line is written the response cannot be retried
	// through a fallback (spec.md §7); a copy failure here is terminal.
	if _, err := io.Copy(w, resp.Body); err != nil {
		gatewaylog.Error().Err(err).Str("host", host).Msg("http body copy failed")
	}
	return nil
}

// webSocketOverConn performs the handshake and starts the relay over an
// already-established connection (spec.md §4.3 WebSocket path steps 3-6).
func webSocketOverConn(ctx context.Context, w http.ResponseWriter, r *http.Request, dst DestinationURL, host string, conn net.Conn) error {
	key, err := wsclient.GenerateKey()
	if err != nil {
		conn.Close()
		return err
	}

	if err := wsclient.WriteHandshake(conn, host, dst.Path, key, headers.Sanitize(r.Header)); err != nil {
		conn.Close()
		return gerrors.NewUpstreamError("ws-handshake-write", host, err)
	}

	buffered := bufio.NewReader(conn)
	if _, err := wsclient.ReadHandshakeResponse(buffered); err != nil {
		conn.Close()
		return err
	}

	client, err := websocket.Accept(w, r, nil)
	if err != nil {
		conn.Close()
		return gerrors.NewUpstreamError("ws-accept-client", host, err)
	}

	relay := wsrelay.New(&bufferedConn{Conn: conn, r: buffered}, client)
	if err := relay.Run(ctx); err != nil {
		gatewaylog.Debug().Err(err).Str("host", host).Msg("websocket relay ended")
	}
	return nil
}

// HandleDNSQuery is unsupported on this transport (spec.md §7).
func (s *Socket) HandleDNSQuery(ctx context.Context, w http.ResponseWriter, r *http.Request, kind DNSKind) error {
	return unsupportedDNS("socket-dns")
}

// bufferedConn lets wsrelay read through the bufio.Reader that already
// consumed the handshake response, so no bytes buffered past the blank
// line are lost to the frame parser.
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (b *bufferedConn) Read(p []byte) (int, error) { return b.r.Read(p) }

func defaultPortFor(scheme string) int {
	switch scheme {
	case "https", "wss":
		return 443
	default:
		return 80
	}
}

// tlsWrap is used by the SOCKS5 transport to upgrade an already-proxied TCP
// stream to TLS, since bytestream.Dial can't dial through a proxy.
func tlsWrap(conn net.Conn, host string) (net.Conn, error) {
	cfg := tlsconfig.Default(host, false, false)
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.Handshake(); err != nil {
		return nil, gerrors.NewUpstreamError("tls-handshake", host, err)
	}
	return tlsConn, nil
}
