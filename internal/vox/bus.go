package vox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"

	"github.com/gorilla/websocket"

	"voxcal/internal/nlu"
)

const (
	KindCommand = "command"
	KindReply   = "reply"
	KindError   = "error"
)

// ErrMalformed marks a frame that arrived intact but could not be decoded.
var ErrMalformed = errors.New("malformed bus message")

// Bus relays text commands from a websocket hub into the assistant.
type Bus struct {
	conn *websocket.Conn
	name string
}

type BusMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

type Submitter interface {
	Submit(ctx context.Context, text string) (nlu.Outcome, error)
}

func NewBus(ctx context.Context, wsURL, name string) (*Bus, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial bus: %w", err)
	}
	log.Info("Connected to bus", "url", wsURL, "name", name)
	return &Bus{conn: conn, name: name}, nil
}

func (b *Bus) Read() (*BusMessage, error) {
	_, msg, err := b.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var m BusMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &m, nil
}

func (b *Bus) Write(m *BusMessage) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

func (b *Bus) Close() error { return b.conn.Close() }

// Serve answers every command addressed to this node until the connection
// drops or ctx ends. Undecodable frames are skipped.
func (b *Bus) Serve(ctx context.Context, s Submitter) error {
	stop := context.AfterFunc(ctx, func() { b.conn.Close() })
	defer stop()

	for {
		m, err := b.Read()
		if errors.Is(err, ErrMalformed) {
			log.Warn("Skipping bus message", "err", err)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read bus: %w", err)
		}
		if m.Kind != KindCommand || (m.To != "" && m.To != b.name) {
			continue
		}

		reply := &BusMessage{From: b.name, To: m.From, Kind: KindReply}
		out, err := s.Submit(ctx, m.Content)
		if err != nil {
			reply.Kind, reply.Content = KindError, err.Error()
		} else {
			reply.Content = out.Response
		}
		if err := b.Write(reply); err != nil {
			return fmt.Errorf("write bus: %w", err)
		}
	}
}
