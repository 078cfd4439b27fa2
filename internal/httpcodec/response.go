package httpcodec

import (
	"bufio"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/relaygate/relaygate/internal/gerrors"
)

// maxHeaderBytes bounds how much header data a single response may send
// before the parser gives up, protecting against a misbehaving or hostile
// upstream.
const maxHeaderBytes = 64 * 1024

// TransferMode names the three ways a response body can be framed
// (spec.md §3 data model, §4.4 step 3).
type TransferMode int

const (
	// ChunkedEncoding means Transfer-Encoding: chunked framed the body.
	ChunkedEncoding TransferMode = iota
	// FixedLength means Content-Length framed the body.
	FixedLength
	// EndOfStream means the body runs until the connection closes.
	EndOfStream
)

// Response is a parsed HTTP/1.1 response with a streaming body: Body never
// holds the full payload in memory, it forwards bytes as they're read from
// the underlying connection (spec.md §4.4 "The parser never buffers the
// full body").
type Response struct {
	StatusCode int
	StatusText string
	Proto      string
	Header     http.Header
	Mode       TransferMode
	Body       io.ReadCloser
}

// ReadResponse parses a status line and headers from r, decides the
// transfer mode, and returns a Response whose Body streams the rest.
// method is the request method that produced this response (HEAD responses
// never carry a body regardless of headers).
func ReadResponse(r *bufio.Reader, method string) (*Response, error) {
	statusLine, err := readLine(r)
	if err != nil {
		return nil, gerrors.NewUpstreamError("read-status-line", "", err)
	}

	resp := &Response{Header: make(http.Header)}
	if err := parseStatusLine(statusLine, resp); err != nil {
		return nil, err
	}

	if err := readHeaders(r, resp.Header); err != nil {
		return nil, err
	}

	resp.Mode, resp.Body = decideBody(r, method, resp.StatusCode, resp.Header)
	return resp, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseStatusLine(line string, resp *Response) error {
	// "HTTP/1.1 200 OK" -> proto, code, text
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "HTTP/1.") {
		return gerrors.NewUpstreamError("parse-status-line", "", errInvalidStatusLine(line))
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return gerrors.NewUpstreamError("parse-status-line", "", errInvalidStatusLine(line))
	}
	resp.Proto = parts[0]
	resp.StatusCode = code
	if len(parts) == 3 {
		resp.StatusText = parts[2]
	}
	return nil
}

type errInvalidStatusLine string

func (e errInvalidStatusLine) Error() string { return "Invalid status line: " + string(e) }

func readHeaders(r *bufio.Reader, header http.Header) error {
	total := 0
	var lastKey string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return gerrors.NewUpstreamError("read-headers", "", err)
		}
		total += len(line)
		if total > maxHeaderBytes {
			return gerrors.NewUpstreamError("read-headers", "", errHeadersTooLarge{})
		}
		if line == "\r\n" || line == "\n" {
			return nil
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(trimmed, " ") || strings.HasPrefix(trimmed, "\t") {
			if lastKey == "" {
				continue
			}
			vals := header[lastKey]
			if len(vals) > 0 {
				vals[len(vals)-1] += " " + strings.TrimSpace(trimmed)
			}
			continue
		}

		key, value, ok := strings.Cut(trimmed, ":")
		if !ok {
			continue
		}
		canon := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(key))
		header.Add(canon, strings.TrimSpace(value))
		lastKey = canon
	}
}

type errHeadersTooLarge struct{}

func (errHeadersTooLarge) Error() string { return "headers exceed maximum size" }

// decideBody picks the transfer mode per spec.md §4.4 step 3 and wraps the
// reader accordingly. 1xx/204/304 responses and HEAD responses never carry
// a body.
func decideBody(r *bufio.Reader, method string, statusCode int, header http.Header) (TransferMode, io.ReadCloser) {
	if method == http.MethodHead ||
		(statusCode >= 100 && statusCode < 200) ||
		statusCode == http.StatusNoContent ||
		statusCode == http.StatusNotModified {
		return EndOfStream, io.NopCloser(strings.NewReader(""))
	}

	te := header.Get("Transfer-Encoding")
	if strings.Contains(strings.ToLower(te), "chunked") {
		return ChunkedEncoding, &chunkedReader{r: r}
	}

	if cl := header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64); err == nil && n >= 0 {
			return FixedLength, &fixedReader{r: r, remaining: n}
		}
	}

	return EndOfStream, io.NopCloser(r)
}

// chunkedReader decodes an HTTP chunked body one chunk at a time, never
// buffering more than the current chunk header (spec.md §4.4 step 4
// "Chunked").
type chunkedReader struct {
	r         *bufio.Reader
	remaining int64 // bytes left in the current chunk
	done      bool
	err       error
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.done {
		return 0, io.EOF
	}

	if c.remaining == 0 {
		size, err := c.readChunkSize()
		if err != nil {
			c.err = err
			return 0, err
		}
		if size == 0 {
			if err := c.consumeTrailer(); err != nil {
				c.err = err
				return 0, err
			}
			c.done = true
			return 0, io.EOF
		}
		c.remaining = size
	}

	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	if err != nil {
		c.err = gerrors.NewUpstreamError("read-chunk-body", "", err)
		return n, c.err
	}
	if c.remaining == 0 {
		if _, err := io.ReadFull(c.r, make([]byte, 2)); err != nil {
			c.err = gerrors.NewUpstreamError("read-chunk-crlf", "", err)
			return n, c.err
		}
	}
	return n, nil
}

func (c *chunkedReader) readChunkSize() (int64, error) {
	line, err := readLine(c.r)
	if err != nil {
		return 0, gerrors.NewUpstreamError("read-chunk-size", "", err)
	}
	sizeStr := line
	if idx := strings.IndexByte(line, ';'); idx >= 0 {
		sizeStr = line[:idx]
	}
	size, err := strconv.ParseInt(strings.TrimSpace(sizeStr), 16, 64)
	if err != nil {
		return 0, gerrors.NewUpstreamError("read-chunk-size", "", err)
	}
	return size, nil
}

func (c *chunkedReader) consumeTrailer() error {
	for {
		line, err := c.r.ReadString('\n')
		if err != nil {
			return gerrors.NewUpstreamError("read-trailer", "", err)
		}
		if line == "\r\n" || line == "\n" {
			return nil
		}
	}
}

func (c *chunkedReader) Close() error { return nil }

// fixedReader streams exactly `remaining` bytes and then reports EOF, even
// if the underlying connection has more buffered (e.g. a pipelined
// response) — the codec never reads past Content-Length.
type fixedReader struct {
	r         *bufio.Reader
	remaining int64
}

func (f *fixedReader) Read(p []byte) (int, error) {
	if f.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > f.remaining {
		p = p[:f.remaining]
	}
	n, err := f.r.Read(p)
	f.remaining -= int64(n)
	if err == io.EOF && f.remaining > 0 {
		// Upstream closed before delivering the full Content-Length: an RFC
		// violation we tolerate by returning what arrived.
		f.remaining = 0
		return n, io.EOF
	}
	return n, err
}

func (f *fixedReader) Close() error { return nil }
