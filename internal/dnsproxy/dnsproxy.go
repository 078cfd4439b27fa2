// Package dnsproxy implements the raw DNS-over-TLS and DNS-over-HTTPS wire
// protocols (spec.md §4.8, RFC 7858 / RFC 8484): a length-prefixed TLS
// socket for DoT, a hand-rolled HTTP/1.1 POST over TLS for DoH-Raw, and a
// net/http fallback for DoH-Fetch. None of these ever parse or rewrite the
// DNS message itself — github.com/miekg/dns is used only to produce a
// debug-log line naming the query, never to alter the forwarded bytes.
package dnsproxy

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net/http"
	"strconv"

	"github.com/miekg/dns"

	"github.com/relaygate/relaygate/internal/bytestream"
	"github.com/relaygate/relaygate/internal/gatewaylog"
	"github.com/relaygate/relaygate/internal/gerrors"
	"github.com/relaygate/relaygate/internal/httpcodec"
)

// Config carries the DoH/DoT server coordinates (spec.md §6 configuration
// keys table).
type Config struct {
	DoHHostname string
	DoHPort     int
	DoHPath     string
	DoTHostname string
	DoTPort     int
}

// DNSMessageContentType is the RFC 8484 media type for both DoH request and
// response bodies.
const DNSMessageContentType = "application/dns-message"

// QueryDoT sends query over a length-prefixed TLS socket (spec.md §4.8
// DoT) and returns the raw DNS response bytes.
func QueryDoT(ctx context.Context, cfg Config, query []byte) ([]byte, error) {
	logQuery("dot", query)

	conn, err := bytestream.Dial(ctx, cfg.DoTHostname, cfg.DoTPort, true, false, false)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	prefixed := make([]byte, 2+len(query))
	binary.BigEndian.PutUint16(prefixed, uint16(len(query)))
	copy(prefixed[2:], query)

	if _, err := conn.Write(prefixed); err != nil {
		return nil, gerrors.NewUpstreamError("dot-write", cfg.DoTHostname, err)
	}

	raw, err := io.ReadAll(conn)
	if err != nil && len(raw) == 0 {
		return nil, gerrors.NewUpstreamError("dot-read", cfg.DoTHostname, err)
	}
	if len(raw) < 2 {
		return nil, gerrors.NewUpstreamError("dot-read", cfg.DoTHostname, errShortDoTResponse{})
	}

	respLen := binary.BigEndian.Uint16(raw[:2])
	body := raw[2:]
	if int(respLen) > len(body) {
		respLen = uint16(len(body))
	}
	return body[:respLen], nil
}

type errShortDoTResponse struct{}

func (errShortDoTResponse) Error() string { return "DoT response shorter than length prefix" }

// QueryDoHRaw POSTs query to the DoH server over a hand-rolled HTTP/1.1
// connection (spec.md §4.8 DoH-Raw), returning the response body bytes.
func QueryDoHRaw(ctx context.Context, cfg Config, query []byte) ([]byte, error) {
	logQuery("doh-raw", query)

	conn, err := bytestream.Dial(ctx, cfg.DoHHostname, cfg.DoHPort, true, false, false)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	header := http.Header{}
	header.Set("Content-Type", DNSMessageContentType)
	header.Set("Accept", DNSMessageContentType)
	header.Set("Connection", "close")
	header.Set("Content-Length", strconv.Itoa(len(query)))

	req := &httpcodec.Request{
		Method: http.MethodPost,
		Path:   cfg.DoHPath,
		Host:   cfg.DoHHostname,
		Header: header,
		Body:   bytes.NewReader(query),
	}
	if err := httpcodec.Write(conn, req); err != nil {
		return nil, gerrors.NewUpstreamError("doh-raw-write", cfg.DoHHostname, err)
	}

	resp, err := httpcodec.ReadResponse(bufio.NewReader(conn), http.MethodPost)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gerrors.NewUpstreamError("doh-raw-read", cfg.DoHHostname, err)
	}
	return body, nil
}

// QueryDoHFetch issues the DoH query through net/http (spec.md §4.8
// DoH-Fetch), used as the fallback target for DoT and DoH-Raw failures.
func QueryDoHFetch(ctx context.Context, cfg Config, query []byte) ([]byte, error) {
	logQuery("doh-fetch", query)

	url := "https://" + cfg.DoHHostname + cfg.DoHPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(query))
	if err != nil {
		return nil, gerrors.NewUpstreamError("doh-fetch-build", cfg.DoHHostname, err)
	}
	httpReq.Header.Set("Content-Type", DNSMessageContentType)
	httpReq.Header.Set("Accept", DNSMessageContentType)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, gerrors.NewUpstreamError("doh-fetch", cfg.DoHHostname, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, gerrors.NewUpstreamError("doh-fetch-read", cfg.DoHHostname, err)
	}
	return body, nil
}

// logQuery emits a debug line naming the query's question section. Parse
// failures are logged and otherwise ignored: malformed input is the
// transport's problem to surface, not the logger's.
func logQuery(via string, query []byte) {
	msg := new(dns.Msg)
	if err := msg.Unpack(query); err != nil || len(msg.Question) == 0 {
		gatewaylog.Debug().Str("via", via).Msg("dns query (unparseable)")
		return
	}
	q := msg.Question[0]
	gatewaylog.Debug().
		Str("via", via).
		Str("qname", q.Name).
		Str("qtype", dns.TypeToString[q.Qtype]).
		Msg("dns query")
}

