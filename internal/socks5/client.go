// Package socks5 implements a hand-rolled SOCKS5 client (RFC 1928/1929,
// spec.md §4.6): greeting, optional username/password authentication, and
// CONNECT with IPv4/IPv6/domain address types. The wire-level control this
// spec requires — exact byte layout, deterministic method offer order — is
// the reason this talks raw bytes instead of reusing a general-purpose
// SOCKS dialer (see DESIGN.md).
package socks5

import (
	"context"
	"net"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/relaygate/relaygate/internal/bytestream"
	"github.com/relaygate/relaygate/internal/gerrors"
)

// Endpoint is a SOCKS5 proxy address (spec.md §3 "SOCKS5 endpoint").
type Endpoint struct {
	Username string
	Password string
	Hostname string
	Port     int
}

// ParseEndpoint parses "[user:pass@]host:port" (spec.md §3). An IPv6
// literal host must be bracketed if it contains colons.
func ParseEndpoint(addr string) (*Endpoint, error) {
	ep := &Endpoint{}

	rest := addr
	if at := strings.LastIndexByte(rest, '@'); at >= 0 {
		creds := rest[:at]
		rest = rest[at+1:]
		user, pass, _ := strings.Cut(creds, ":")
		ep.Username, ep.Password = user, pass
	}

	host, portStr, err := net.SplitHostPort(rest)
	if err != nil {
		return nil, gerrors.NewClientError("parse-socks5-address", "invalid SOCKS5_ADDRESS: "+err.Error())
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, gerrors.NewClientError("parse-socks5-address", "invalid SOCKS5_ADDRESS port: "+portStr)
	}

	ep.Hostname = host
	ep.Port = port
	return ep, nil
}

// greeting methods, offered in this fixed order (spec.md §3 invariants).
const (
	methodNoAuth     = 0x00
	methodUserPass   = 0x02
	methodNoAccept   = 0xFF
	socksVersion     = 0x05
	authSubVersion   = 0x01
	atypIPv4         = 0x01
	atypDomain       = 0x03
	atypIPv6         = 0x04
	replySucceeded   = 0x00
	cmdConnect       = 0x01
	reservedOctet    = 0x00
)

// Connect performs the SOCKS5 handshake against proxy and issues CONNECT
// for destHost:destPort, returning the raw connection for the caller to own
// (spec.md §4.6 "After success the caller owns the byte stream").
func Connect(ctx context.Context, proxy *Endpoint, destHost string, destPort int) (net.Conn, error) {
	conn, err := bytestream.Dial(ctx, proxy.Hostname, proxy.Port, false, false, false)
	if err != nil {
		return nil, err
	}

	if err := greet(conn, proxy); err != nil {
		conn.Close()
		return nil, err
	}

	if err := connect(conn, destHost, destPort); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// greet sends the greeting (spec.md §4.6 step 1) and, if required,
// performs username/password sub-negotiation (RFC 1929, step 2).
func greet(conn net.Conn, proxy *Endpoint) error {
	if _, err := conn.Write([]byte{socksVersion, 0x02, methodNoAuth, methodUserPass}); err != nil {
		return gerrors.NewUpstreamError("socks5-greeting", proxy.Hostname, err)
	}

	reply := make([]byte, 2)
	if _, err := readFull(conn, reply); err != nil {
		return gerrors.NewUpstreamError("socks5-greeting", proxy.Hostname, err)
	}
	if reply[0] != socksVersion {
		return gerrors.NewUpstreamError("socks5-greeting", proxy.Hostname, errBadVersion{})
	}

	switch reply[1] {
	case methodNoAccept:
		return gerrors.NewUpstreamError("socks5-greeting", proxy.Hostname, errNoAcceptableMethods{})
	case methodUserPass:
		return authenticate(conn, proxy)
	case methodNoAuth:
		return nil
	default:
		return gerrors.NewUpstreamError("socks5-greeting", proxy.Hostname, errNoAcceptableMethods{})
	}
}

func authenticate(conn net.Conn, proxy *Endpoint) error {
	req := make([]byte, 0, 3+len(proxy.Username)+len(proxy.Password))
	req = append(req, authSubVersion, byte(len(proxy.Username)))
	req = append(req, proxy.Username...)
	req = append(req, byte(len(proxy.Password)))
	req = append(req, proxy.Password...)

	if _, err := conn.Write(req); err != nil {
		return gerrors.NewUpstreamError("socks5-auth", proxy.Hostname, err)
	}

	reply := make([]byte, 2)
	if _, err := readFull(conn, reply); err != nil {
		return gerrors.NewUpstreamError("socks5-auth", proxy.Hostname, err)
	}
	if reply[0] != authSubVersion || reply[1] != replySucceeded {
		return gerrors.NewUpstreamError("socks5-auth", proxy.Hostname, errAuthFailed{})
	}
	return nil
}

// connect sends the CONNECT request (spec.md §4.6 step 3) and validates the
// reply (step 4).
func connect(conn net.Conn, destHost string, destPort int) error {
	addr, err := encodeAddress(destHost)
	if err != nil {
		return err
	}

	req := make([]byte, 0, 4+len(addr)+2)
	req = append(req, socksVersion, cmdConnect, reservedOctet)
	req = append(req, addr...)
	req = append(req, byte(destPort>>8), byte(destPort))

	if _, err := conn.Write(req); err != nil {
		return gerrors.NewUpstreamError("socks5-connect", destHost, err)
	}

	// Response header is VER REP RSV ATYP, followed by a variable-length
	// bound address we don't need but must still drain.
	head := make([]byte, 4)
	if _, err := readFull(conn, head); err != nil {
		return gerrors.NewUpstreamError("socks5-connect", destHost, err)
	}
	if head[1] != replySucceeded {
		return gerrors.NewUpstreamError("socks5-connect", destHost, errConnectFailed{})
	}

	var boundLen int
	switch head[3] {
	case atypIPv4:
		boundLen = 4
	case atypIPv6:
		boundLen = 16
	case atypDomain:
		lenByte := make([]byte, 1)
		if _, err := readFull(conn, lenByte); err != nil {
			return gerrors.NewUpstreamError("socks5-connect", destHost, err)
		}
		boundLen = int(lenByte[0])
	default:
		return gerrors.NewUpstreamError("socks5-connect", destHost, errConnectFailed{})
	}
	if _, err := readFull(conn, make([]byte, boundLen+2)); err != nil { // +2 for the bound port
		return gerrors.NewUpstreamError("socks5-connect", destHost, err)
	}

	return nil
}

// encodeAddress builds the ATYP+ADDR portion of a CONNECT request. Literal
// IPv4/IPv6 addresses use ATYP 1/4; everything else — the common case, since
// DNS resolution of the destination is delegated to the SOCKS5 server
// (spec.md §1 Non-goals) — uses ATYP 3 with an IDNA-normalized domain name.
func encodeAddress(host string) ([]byte, error) {
	if ip := net.ParseIP(host); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return append([]byte{atypIPv4}, v4...), nil
		}
		return append([]byte{atypIPv6}, ip.To16()...), nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		ascii = host // fall back to the raw label if it isn't valid IDNA
	}
	if len(ascii) > 255 {
		return nil, gerrors.NewClientError("socks5-encode-address", "hostname too long for SOCKS5 domain ATYP")
	}

	out := make([]byte, 0, 2+len(ascii))
	out = append(out, atypDomain, byte(len(ascii)))
	out = append(out, ascii...)
	return out, nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

type errBadVersion struct{}

func (errBadVersion) Error() string { return "unexpected SOCKS version in reply" }

type errNoAcceptableMethods struct{}

func (errNoAcceptableMethods) Error() string { return "no acceptable methods" }

type errAuthFailed struct{}

func (errAuthFailed) Error() string { return "socks5 username/password authentication failed" }

type errConnectFailed struct{}

func (errConnectFailed) Error() string { return "fail to open socks connection" }
