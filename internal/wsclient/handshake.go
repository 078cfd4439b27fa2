// Package wsclient implements the hand-rolled WebSocket client state
// machine that talks to the *upstream* over a raw byte stream (spec.md
// §2, §4.3 WebSocket path, §4.5): RFC 6455 handshake, and frame pack/parse
// with masking and fragmentation reassembly.
package wsclient

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/relaygate/relaygate/internal/gerrors"
)

// GenerateKey returns a fresh base64-encoded 16-byte Sec-WebSocket-Key
// (spec.md §4.3 step 3), drawn from a CSPRNG per spec.md §9 "Random".
func GenerateKey() (string, error) {
	key := make([]byte, 16)
	if _, err := rand.Read(key); err != nil {
		return "", gerrors.NewUpstreamError("ws-key", "", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// WriteHandshake serializes the upgrade request (spec.md §4.3 step 4):
// Host, Connection: Upgrade, Upgrade: websocket, Sec-WebSocket-Version: 13,
// Sec-WebSocket-Key, plus the caller's already-sanitized inbound headers.
func WriteHandshake(w io.Writer, host, path, key string, extra http.Header) error {
	if _, err := fmt.Fprintf(w, "GET %s HTTP/1.1\r\n", path); err != nil {
		return err
	}
	lines := []string{
		"Host: " + host,
		"Connection: Upgrade",
		"Upgrade: websocket",
		"Sec-WebSocket-Version: 13",
		"Sec-WebSocket-Key: " + key,
	}
	for _, l := range lines {
		if _, err := io.WriteString(w, l+"\r\n"); err != nil {
			return err
		}
	}
	for k, values := range extra {
		if isHandshakeReservedHeader(k) {
			continue
		}
		for _, v := range values {
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", k, v); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

func isHandshakeReservedHeader(name string) bool {
	switch strings.ToLower(name) {
	case "host", "connection", "upgrade", "sec-websocket-version", "sec-websocket-key":
		return true
	default:
		return false
	}
}

// ReadHandshakeResponse reads bytes until CRLF CRLF (spec.md §4.3 step 5)
// and requires the status line to contain both "101" and "Switching
// Protocols".
func ReadHandshakeResponse(r *bufio.Reader) (statusLine string, err error) {
	statusLine, err = r.ReadString('\n')
	if err != nil {
		return "", gerrors.NewUpstreamError("ws-handshake", "", err)
	}
	statusLine = strings.TrimRight(statusLine, "\r\n")

	// Drain headers up to the blank line.
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", gerrors.NewUpstreamError("ws-handshake", "", err)
		}
		if line == "\r\n" || line == "\n" {
			break
		}
	}

	if !strings.Contains(statusLine, "101") || !strings.Contains(statusLine, "Switching Protocols") {
		return "", gerrors.NewUpstreamError("ws-handshake", "", errBadHandshake(statusLine))
	}
	return statusLine, nil
}

type errBadHandshake string

func (e errBadHandshake) Error() string {
	return "websocket handshake rejected: " + string(e)
}
