package wsclient

import (
	"bytes"
	"testing"
)

func TestPackFrameIsAlwaysMaskedText(t *testing.T) {
	payload := []byte("hello")
	frame, err := PackFrame(payload)
	if err != nil {
		t.Fatalf("PackFrame: %v", err)
	}

	if frame[0] != 0x81 {
		t.Errorf("first byte = %#x, want 0x81 (FIN=1, opcode=text)", frame[0])
	}
	if frame[1]&0x80 == 0 {
		t.Error("MASK bit must be set")
	}

	length := int(frame[1] &^ 0x80)
	mask := frame[2:6]
	masked := frame[6:]
	if length != len(payload) {
		t.Fatalf("length = %d, want %d", length, len(payload))
	}

	unmasked := make([]byte, len(masked))
	for i, b := range masked {
		unmasked[i] = b ^ mask[i%4]
	}
	if !bytes.Equal(unmasked, payload) {
		t.Errorf("unmasked payload = %q, want %q", unmasked, payload)
	}
}

func TestPackFrameRejectsOversizedPayload(t *testing.T) {
	if _, err := PackFrame(make([]byte, maxPackablePayload)); err == nil {
		t.Fatal("expected an error for a payload at the packable limit")
	}
}

func TestParseFrameRoundTripsAnUnmaskedServerFrame(t *testing.T) {
	// FIN=1, opcode=text, no mask, length 5, payload "hello".
	raw := []byte{0x81, 0x05, 'h', 'e', 'l', 'l', 'o'}

	frame, err := ParseFrame(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if !frame.Fin || frame.Opcode != OpcodeText {
		t.Errorf("Fin=%v Opcode=%d, want Fin=true Opcode=text", frame.Fin, frame.Opcode)
	}
	if string(frame.Payload) != "hello" {
		t.Errorf("Payload = %q", frame.Payload)
	}
}

func TestParseFrameRejectsLen127(t *testing.T) {
	raw := []byte{0x82, 0x7F}
	if _, err := ParseFrame(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected an error for a 64-bit extended length frame")
	}
}

func TestParseFrameExtended16BitLength(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 200)
	raw := append([]byte{0x82, 126, 0x00, 0xC8}, payload...)

	frame, err := ParseFrame(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if len(frame.Payload) != 200 {
		t.Errorf("len(Payload) = %d, want 200", len(frame.Payload))
	}
}
