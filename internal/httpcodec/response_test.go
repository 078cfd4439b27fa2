package httpcodec

import (
	"bufio"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestReadResponseChunked(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"

	resp, err := ReadResponse(bufio.NewReader(strings.NewReader(raw)), http.MethodGet)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if resp.Mode != ChunkedEncoding {
		t.Fatalf("Mode = %v, want ChunkedEncoding", resp.Mode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "hello world" {
		t.Errorf("body = %q, want %q", body, "hello world")
	}
}

func TestReadResponseFixedLength(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 17\r\n\r\nhttpbin-response!"

	resp, err := ReadResponse(bufio.NewReader(strings.NewReader(raw)), http.MethodGet)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if resp.Mode != FixedLength {
		t.Fatalf("Mode = %v, want FixedLength", resp.Mode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "httpbin-response!" {
		t.Errorf("body = %q", body)
	}
}

func TestReadResponseHeadHasNoBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\nabcde"

	resp, err := ReadResponse(bufio.NewReader(strings.NewReader(raw)), http.MethodHead)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) != 0 {
		t.Errorf("HEAD response body = %q, want empty", body)
	}
}

func TestReadResponseInvalidStatusLine(t *testing.T) {
	if _, err := ReadResponse(bufio.NewReader(strings.NewReader("NOT A STATUS LINE\r\n\r\n")), http.MethodGet); err == nil {
		t.Fatal("expected an error for a malformed status line")
	}
}

func TestReadResponseEndOfStream(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n\r\nwhatever remains until close"

	resp, err := ReadResponse(bufio.NewReader(strings.NewReader(raw)), http.MethodGet)
	if err != nil {
		t.Fatalf("ReadResponse: %v", err)
	}
	if resp.Mode != EndOfStream {
		t.Fatalf("Mode = %v, want EndOfStream", resp.Mode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "whatever remains until close" {
		t.Errorf("body = %q", body)
	}
}
