// Package httpcodec implements the hand-rolled HTTP/1.1 client wire codec
// (spec.md §2, §4.4) used by the Socket transport: request serialization
// over a raw byte stream, and response parsing that never buffers a full
// body (chunked, fixed-length, or end-of-stream).
//
// Adapted from WhileEndless/go-rawhttp's pkg/client/client.go, generalized
// from a buffer.Buffer-backed Response to a streaming io.Reader body so the
// gateway can relay bytes to its own caller as they arrive.
package httpcodec

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Request is everything the codec needs to serialize a request line, its
// headers, and its body onto a byte stream.
type Request struct {
	Method string
	Path   string // request-target: path + "?" + query, already assembled
	Host   string // authority placed in the Host header
	Header http.Header
	Body   io.Reader // nil for bodyless requests
}

// Write serializes req onto w: request line, folded headers, a blank line,
// then the body copied chunk by chunk (spec.md §4.3 step 3-4).
func Write(w io.Writer, req *Request) error {
	if _, err := fmt.Fprintf(w, "%s %s HTTP/1.1\r\n", req.Method, req.Path); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Host: %s\r\n", req.Host); err != nil {
		return err
	}
	for key, values := range req.Header {
		for _, v := range values {
			if strings.EqualFold(key, "Host") {
				continue // Host was already written from req.Host
			}
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", key, v); err != nil {
				return err
			}
		}
	}
	if _, err := io.WriteString(w, "\r\n"); err != nil {
		return err
	}

	if req.Body == nil {
		return nil
	}

	buf := make([]byte, 32*1024)
	for {
		n, readErr := req.Body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
