package wsclient

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/relaygate/relaygate/internal/gerrors"
)

// Opcode values this codec understands (RFC 6455 §11.8, spec.md §4.5).
const (
	OpcodeContinuation byte = 0x0
	OpcodeText         byte = 0x1
	OpcodeBinary       byte = 0x2
	OpcodeClose        byte = 0x8
)

// Frame is one parsed WebSocket frame (spec.md §3 data model).
type Frame struct {
	Fin     bool
	Opcode  byte
	Payload []byte
}

// maxPackablePayload is the exclusive upper bound on the payload length
// PackFrame will encode: 65535 bytes, the most a 16-bit extended length can
// carry. Payloads of this length or more are rejected rather than split
// (spec.md §4.5 "Payload too large"; §9 open question: 127-length framing
// is unsupported by design, not merely unimplemented).
const maxPackablePayload = 65536

// PackFrame builds a single masked client-to-upstream frame (spec.md §4.5
// "Pack"). Every outbound frame is tagged FIN=1, opcode=text — this is the
// forwarding behavior spec.md §4.5 and §9 document for this gateway; it
// does not distinguish an inbound binary message from a text one.
func PackFrame(payload []byte) ([]byte, error) {
	if len(payload) >= maxPackablePayload {
		return nil, gerrors.NewUpstreamError("ws-pack", "", errPayloadTooLarge{})
	}

	mask := make([]byte, 4)
	if _, err := rand.Read(mask); err != nil {
		return nil, gerrors.NewUpstreamError("ws-pack", "", err)
	}

	var header []byte
	switch {
	case len(payload) < 126:
		header = []byte{0x81, 0x80 | byte(len(payload))}
	default:
		header = make([]byte, 4)
		header[0] = 0x81
		header[1] = 0x80 | 126
		binary.BigEndian.PutUint16(header[2:], uint16(len(payload)))
	}

	out := make([]byte, 0, len(header)+4+len(payload))
	out = append(out, header...)
	out = append(out, mask...)

	masked := make([]byte, len(payload))
	for i, b := range payload {
		masked[i] = b ^ mask[i%4]
	}
	out = append(out, masked...)

	return out, nil
}

type errPayloadTooLarge struct{}

func (errPayloadTooLarge) Error() string { return "Payload too large" }

// ParseFrame reads a single frame from r (spec.md §4.5 "Parse"). Servers
// should not mask their frames, but a set MASK bit is honored anyway.
// len7 == 127 (64-bit extended length) is rejected as unsupported — this
// gateway never splits or reassembles frames that large.
func ParseFrame(r io.Reader) (*Frame, error) {
	head := make([]byte, 2)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, gerrors.NewUpstreamError("ws-parse", "", err)
	}

	fin := head[0]&0x80 != 0
	opcode := head[0] & 0x0F
	masked := head[1]&0x80 != 0
	length := uint64(head[1] & 0x7F)

	switch length {
	case 126:
		ext := make([]byte, 2)
		if _, err := io.ReadFull(r, ext); err != nil {
			return nil, gerrors.NewUpstreamError("ws-parse", "", err)
		}
		length = uint64(binary.BigEndian.Uint16(ext))
	case 127:
		return nil, gerrors.NewUpstreamError("ws-parse", "", errUnsupportedFrameSize{})
	}

	var mask []byte
	if masked {
		mask = make([]byte, 4)
		if _, err := io.ReadFull(r, mask); err != nil {
			return nil, gerrors.NewUpstreamError("ws-parse", "", err)
		}
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, gerrors.NewUpstreamError("ws-parse", "", err)
	}
	if masked {
		for i := range payload {
			payload[i] ^= mask[i%4]
		}
	}

	return &Frame{Fin: fin, Opcode: opcode, Payload: payload}, nil
}

type errUnsupportedFrameSize struct{}

func (errUnsupportedFrameSize) Error() string { return "unsupported frame size" }

// FragmentAssembler holds the in-progress reassembly of a fragmented
// message (spec.md §3 "fragmentedOpcode?, fragmentedPayload?"). A fresh
// non-continuation frame with FIN=0 starts a new context, discarding any
// prior in-progress one (spec.md §4.5).
type FragmentAssembler struct {
	active  bool
	opcode  byte
	payload []byte
}

// Active reports whether a fragmented message is in progress.
func (f *FragmentAssembler) Active() bool { return f.active }

// Start begins a new fragmented message, discarding any prior context.
func (f *FragmentAssembler) Start(opcode byte, payload []byte) {
	f.active = true
	f.opcode = opcode
	f.payload = append([]byte{}, payload...)
}

// Append adds a continuation frame's payload to the in-progress message.
func (f *FragmentAssembler) Append(payload []byte) {
	f.payload = append(f.payload, payload...)
}

// Finish returns the assembled opcode and payload and resets the
// assembler.
func (f *FragmentAssembler) Finish() (byte, []byte) {
	opcode, payload := f.opcode, f.payload
	*f = FragmentAssembler{}
	return opcode, payload
}
