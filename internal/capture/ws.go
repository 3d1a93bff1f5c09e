package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/coder/websocket"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/models"
)

// Capture wire protocol. The client opens the socket, sends a hello
// describing its source and tracks, then streams binary chunks. The
// server sends control messages to stop individual tracks or the whole
// recorder; the client acknowledges a stop after flushing its last
// chunk.
type Hello struct {
	Source string       `json:"source"`
	MIME   string       `json:"mime,omitempty"`
	Tracks []HelloTrack `json:"tracks"`
	// Error is set instead of tracks when the client could not open
	// the source: "permission_denied" or "source_unavailable".
	Error string `json:"error,omitempty"`
}

type HelloTrack struct {
	Kind  string `json:"kind"`
	Label string `json:"label,omitempty"`
}

type control struct {
	Type string `json:"type"`
	Kind string `json:"kind,omitempty"`
}

// Gateway implements Platform on top of remote WebSocket clients. A
// client connection offers a stream for a source kind; an acquirer
// waiting on that kind picks it up. Offers and acquisitions rendezvous
// on unbuffered channels, so a stream is never created without a
// consumer.
type Gateway struct {
	mic     chan offer
	display chan offer
}

type offer struct {
	stream *Stream
	err    error
}

// NewGateway creates an empty gateway.
func NewGateway() *Gateway {
	return &Gateway{
		mic:     make(chan offer),
		display: make(chan offer),
	}
}

// OpenMicrophone waits for a client to offer a microphone stream.
func (g *Gateway) OpenMicrophone(ctx context.Context) (*Stream, error) {
	return g.wait(ctx, g.mic)
}

// OpenDisplay waits for a client to offer a display stream.
func (g *Gateway) OpenDisplay(ctx context.Context) (*Stream, error) {
	return g.wait(ctx, g.display)
}

func (g *Gateway) wait(ctx context.Context, ch chan offer) (*Stream, error) {
	select {
	case o := <-ch:
		return o.stream, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("no capture client arrived: %w", apperr.ErrSourceUnavailable)
	}
}

// Serve drives one capture connection: it reads the hello, builds a
// remote stream and offers it to a waiting acquirer, then pumps chunks
// until the recorder stops or the connection drops. It blocks until
// the stream is finished and returns the close reason.
func (g *Gateway) Serve(ctx context.Context, conn *websocket.Conn, logger *slog.Logger) error {
	typ, data, err := conn.Read(ctx)
	if err != nil {
		return fmt.Errorf("capture: read hello: %w", err)
	}
	if typ != websocket.MessageText {
		return fmt.Errorf("capture: hello must be text")
	}
	var hello Hello
	if err := json.Unmarshal(data, &hello); err != nil {
		return fmt.Errorf("capture: decode hello: %w", err)
	}

	kind, err := models.ParseSourceKind(hello.Source)
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	ch := g.mic
	if kind == models.SystemAudio {
		ch = g.display
	}

	if hello.Error != "" {
		o := offer{err: helloError(hello.Error)}
		select {
		case ch <- o:
		case <-ctx.Done():
		}
		return nil
	}

	stream, pump := newRemoteStream(ctx, conn, hello, logger)
	select {
	case ch <- offer{stream: stream}:
	case <-ctx.Done():
		conn.Close(websocket.StatusGoingAway, "no capture pending")
		return nil
	}
	return pump()
}

func helloError(code string) error {
	switch code {
	case "permission_denied":
		return apperr.ErrPermissionDenied
	default:
		return apperr.ErrSourceUnavailable
	}
}

// newRemoteStream builds a Stream fed by the connection and returns it
// together with the pump that must run to completion on the serving
// goroutine. Binary messages become chunks; a stop request is relayed
// to the client, which flushes and acknowledges, upon which the chunk
// channel is closed. Track stops are relayed as control messages.
func newRemoteStream(ctx context.Context, conn *websocket.Conn, hello Hello, logger *slog.Logger) (*Stream, func() error) {
	mime := hello.MIME
	if mime == "" {
		mime = "audio/webm"
	}

	send := func(c control) {
		data, _ := json.Marshal(c)
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			logger.Debug("capture: control write failed", slog.String("error", err.Error()))
		}
	}

	tracks := make([]*Track, 0, len(hello.Tracks))
	for _, ht := range hello.Tracks {
		kind := TrackKind(ht.Kind)
		tracks = append(tracks, NewTrack(kind, ht.Label, func() {
			send(control{Type: "stop_track", Kind: string(kind)})
		}))
	}

	chunks := make(chan []byte)
	stream := NewStream(mime, tracks, chunks, func() {
		send(control{Type: "stop"})
	})

	pump := func() error {
		defer close(chunks)
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				// Connection gone: whatever chunks arrived stand.
				return nil
			}
			switch typ {
			case websocket.MessageBinary:
				select {
				case chunks <- data:
				case <-ctx.Done():
					return nil
				}
			case websocket.MessageText:
				var c control
				if err := json.Unmarshal(data, &c); err != nil {
					continue
				}
				if c.Type == "stop_ack" {
					conn.Close(websocket.StatusNormalClosure, "recording finished")
					return nil
				}
			}
		}
	}
	return stream, pump
}
