package wsclient

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"
)

func TestGenerateKeyIsBase64Of16Bytes(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if key == "" {
		t.Fatal("expected a non-empty key")
	}
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		t.Fatalf("key %q is not valid base64: %v", key, err)
	}
	if len(raw) != 16 {
		t.Errorf("decoded key length = %d, want 16", len(raw))
	}
	key2, _ := GenerateKey()
	if key == key2 {
		t.Error("two generated keys should not collide")
	}
}

func TestWriteHandshakeOmitsReservedHeaders(t *testing.T) {
	extra := http.Header{}
	extra.Set("Cookie", "session=abc")
	extra.Set("Connection", "should-be-ignored")

	var buf bytes.Buffer
	if err := WriteHandshake(&buf, "echo.example", "/socket", "dGVzdGtleQ==", extra); err != nil {
		t.Fatalf("WriteHandshake: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "GET /socket HTTP/1.1\r\n") {
		t.Errorf("unexpected request line: %q", out)
	}
	if !strings.Contains(out, "Sec-WebSocket-Key: dGVzdGtleQ==\r\n") {
		t.Error("expected the Sec-WebSocket-Key header")
	}
	if !strings.Contains(out, "Cookie: session=abc\r\n") {
		t.Error("expected the extra Cookie header to pass through")
	}
	if strings.Contains(out, "should-be-ignored") {
		t.Error("caller-supplied Connection header must not override the fixed one")
	}
}

func TestReadHandshakeResponseAccepts101(t *testing.T) {
	raw := "HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\n\r\n"
	if _, err := ReadHandshakeResponse(bufio.NewReader(strings.NewReader(raw))); err != nil {
		t.Fatalf("ReadHandshakeResponse: %v", err)
	}
}

func TestReadHandshakeResponseRejectsNon101(t *testing.T) {
	raw := "HTTP/1.1 404 Not Found\r\nContent-Length: 0\r\n\r\n"
	if _, err := ReadHandshakeResponse(bufio.NewReader(strings.NewReader(raw))); err == nil {
		t.Fatal("expected an error for a non-101 handshake response")
	}
}
