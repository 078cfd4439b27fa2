package socks5

import (
	"bytes"
	"testing"
)

func TestEncodeAddressDomain(t *testing.T) {
	addr, err := encodeAddress("example.com")
	if err != nil {
		t.Fatalf("encodeAddress: %v", err)
	}

	// spec.md §8: 05 01 00 03 0B "example.com" <port_hi> <port_lo> is the
	// full CONNECT datagram; encodeAddress contributes the ATYP, length and
	// name between "05 01 00" and the port bytes.
	want := append([]byte{atypDomain, 0x0B}, []byte("example.com")...)
	if !bytes.Equal(addr, want) {
		t.Errorf("encodeAddress(%q) = % x, want % x", "example.com", addr, want)
	}
}

func TestEncodeAddressIPv4(t *testing.T) {
	addr, err := encodeAddress("127.0.0.1")
	if err != nil {
		t.Fatalf("encodeAddress: %v", err)
	}
	want := []byte{atypIPv4, 127, 0, 0, 1}
	if !bytes.Equal(addr, want) {
		t.Errorf("encodeAddress(127.0.0.1) = % x, want % x", addr, want)
	}
}

func TestConnectDatagramBytes(t *testing.T) {
	addr, err := encodeAddress("example.com")
	if err != nil {
		t.Fatalf("encodeAddress: %v", err)
	}

	datagram := append([]byte{socksVersion, cmdConnect, reservedOctet}, addr...)
	port := 443
	datagram = append(datagram, byte(port>>8), byte(port))

	want := []byte{0x05, 0x01, 0x00, 0x03, 0x0B}
	want = append(want, []byte("example.com")...)
	want = append(want, 0x01, 0xBB) // 443 big-endian

	if !bytes.Equal(datagram, want) {
		t.Errorf("CONNECT datagram = % x, want % x", datagram, want)
	}
}

func TestParseEndpoint(t *testing.T) {
	ep, err := ParseEndpoint("alice:secret@proxy.example:1080")
	if err != nil {
		t.Fatalf("ParseEndpoint: %v", err)
	}
	if ep.Username != "alice" || ep.Password != "secret" {
		t.Errorf("got user=%q pass=%q", ep.Username, ep.Password)
	}
	if ep.Hostname != "proxy.example" || ep.Port != 1080 {
		t.Errorf("got host=%q port=%d", ep.Hostname, ep.Port)
	}
}

func TestParseEndpointNoAuth(t *testing.T) {
	ep, err := ParseEndpoint("proxy.example:1080")
	if err != nil {
		t.Fatalf("ParseEndpoint: %v", err)
	}
	if ep.Username != "" || ep.Password != "" {
		t.Errorf("expected no credentials, got user=%q pass=%q", ep.Username, ep.Password)
	}
}
