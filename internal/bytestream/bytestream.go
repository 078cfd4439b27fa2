// Package bytestream provides a uniform dial for raw TCP or TLS-wrapped TCP
// (spec.md §2 "ByteStream abstraction"), with half-close disabled and no
// connection pooling (spec.md §1 Non-goals). It is the socket primitive
// every hand-rolled client in this module (HTTP/1.1, WebSocket, SOCKS5,
// DoT) dials through.
//
// Adapted from WhileEndless/go-rawhttp's pkg/transport connectTCP/
// upgradeTLS, stripped of its host connection pool and upstream-proxy
// dialing (this module's own socks5 strategy supersedes that).
package bytestream

import (
	"context"
	"crypto/tls"
	"net"
	"strconv"
	"time"

	"github.com/relaygate/relaygate/internal/gerrors"
	"github.com/relaygate/relaygate/internal/tlsconfig"
)

// DefaultConnTimeout bounds how long a Dial may take to establish the TCP
// connection (and, for TLS, complete the handshake).
const DefaultConnTimeout = 10 * time.Second

// halfCloseDisabledConn wraps a *net.TCPConn to reject CloseWrite, matching
// spec.md's "half-close disabled" invariant: once either side initiates
// close, the whole stream goes down together instead of allowing a
// half-duplex shutdown some upstreams mishandle.
type halfCloseDisabledConn struct {
	net.Conn
}

// Dial connects to host:port, wrapping the connection in TLS when useTLS is
// set. disableSNI and insecureTLS are forwarded to tlsconfig.Default.
func Dial(ctx context.Context, host string, port int, useTLS, disableSNI, insecureTLS bool) (net.Conn, error) {
	if port == 0 {
		if useTLS {
			port = 443
		} else {
			port = 80
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, DefaultConnTimeout)
	defer cancel()

	dialer := &net.Dialer{Timeout: DefaultConnTimeout}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := dialer.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, gerrors.NewUpstreamError("dial", addr, err)
	}

	wrapped := net.Conn(&halfCloseDisabledConn{Conn: conn})

	if !useTLS {
		return wrapped, nil
	}

	cfg := tlsconfig.Default(host, disableSNI, insecureTLS)
	tlsConn := tls.Client(wrapped, cfg)
	if err := tlsConn.HandshakeContext(dialCtx); err != nil {
		conn.Close()
		return nil, gerrors.NewUpstreamError("tls-handshake", addr, err)
	}
	return tlsConn, nil
}
