// Package wsrelay bridges the client-facing WebSocket connection (accepted
// with github.com/coder/websocket, standing in for the host runtime's
// WebSocketPair referenced in spec.md §4.3) to the hand-rolled upstream
// codec in internal/wsclient. It owns the fragmentation reassembly context
// from spec.md §3/§4.5 and the full-duplex relay loop from spec.md §5.
package wsrelay

import (
	"context"
	"net"
	"strconv"

	"github.com/coder/websocket"

	"github.com/relaygate/relaygate/internal/gatewaylog"
	"github.com/relaygate/relaygate/internal/metrics"
	"github.com/relaygate/relaygate/internal/wsclient"
)

// Relay owns the upstream byte stream's reader/writer exclusively for the
// session's lifetime (spec.md §5 "Shared resources").
type Relay struct {
	upstream net.Conn
	client   *websocket.Conn
}

// New constructs a Relay over an already-handshaken upstream connection and
// an already-accepted client connection.
func New(upstream net.Conn, client *websocket.Conn) *Relay {
	return &Relay{upstream: upstream, client: client}
}

// Run drives both relay directions until either side closes or errors. Each
// direction (upstream -> client and client -> upstream) runs on its own
// goroutine; Run blocks until the first one ends, closes both connections,
// waits for the other to return, and reports the first error.
func (rl *Relay) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() { errCh <- rl.pumpClientToUpstream(ctx) }()
	go func() { errCh <- rl.pumpUpstreamToClient(ctx) }()

	err := <-errCh
	rl.upstream.Close()
	rl.client.Close(websocket.StatusNormalClosure, "relay closed")
	<-errCh
	return err
}

// pumpClientToUpstream reads messages from the client and packs them as
// masked frames onto the upstream socket (spec.md §4.5 "Pack").
func (rl *Relay) pumpClientToUpstream(ctx context.Context) error {
	for {
		_, data, err := rl.client.Read(ctx)
		if err != nil {
			return err
		}
		frame, err := wsclient.PackFrame(data)
		if err != nil {
			return err
		}
		if _, err := rl.upstream.Write(frame); err != nil {
			return err
		}
		metrics.WebSocketFramesTotal.WithLabelValues("outbound", strconv.Itoa(int(wsclient.OpcodeText))).Inc()
	}
}

// pumpUpstreamToClient reads frames from upstream, reassembles fragmented
// messages, and dispatches complete messages to the client (spec.md §4.5
// "Parse").
func (rl *Relay) pumpUpstreamToClient(ctx context.Context) error {
	var frag wsclient.FragmentAssembler

	for {
		frame, err := wsclient.ParseFrame(rl.upstream)
		if err != nil {
			return err
		}

		switch frame.Opcode {
		case wsclient.OpcodeClose:
			return rl.client.Close(websocket.StatusNormalClosure, "")

		case wsclient.OpcodeText, wsclient.OpcodeBinary:
			if !frame.Fin {
				frag.Start(frame.Opcode, frame.Payload)
				continue
			}
			// A fresh, unfragmented frame arriving while a fragmented message
			// is still in progress discards that context (spec.md §4.5 "any
			// in-progress context is discarded if a new fresh-opcode frame
			// with FIN=1 arrives").
			if frag.Active() {
				frag = wsclient.FragmentAssembler{}
			}
			if err := rl.dispatch(ctx, frame.Opcode, frame.Payload); err != nil {
				return err
			}

		case wsclient.OpcodeContinuation:
			if !frag.Active() {
				gatewaylog.Debug().Msg("stray continuation frame ignored")
				continue
			}
			frag.Append(frame.Payload)
			if frame.Fin {
				opcode, payload := frag.Finish()
				if err := rl.dispatch(ctx, opcode, payload); err != nil {
					return err
				}
			}

		default:
			// Unhandled opcodes (ping/pong/reserved) are silently dropped;
			// spec.md §4.5 only lists 0, 1, 2, 8 as consumed.
		}
	}
}

func (rl *Relay) dispatch(ctx context.Context, opcode byte, payload []byte) error {
	msgType := websocket.MessageText
	if opcode == wsclient.OpcodeBinary {
		msgType = websocket.MessageBinary
	}
	metrics.WebSocketFramesTotal.WithLabelValues("inbound", strconv.Itoa(int(opcode))).Inc()
	return rl.client.Write(ctx, msgType, payload)
}
