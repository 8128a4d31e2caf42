// websocket/websocket.go

// Package websocket wraps github.com/coder/websocket for request/reply
// sessions that exchange typed JSON envelopes.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// Conn is an accepted connection. Writes are serialized; reads must come
// from a single goroutine.
type Conn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// AcceptOptions configures the upgrade.
type AcceptOptions struct {
	// OriginPatterns lists the hosts allowed to open a connection besides
	// the request's own host, e.g. "example.com" or "*.example.com".
	OriginPatterns []string

	// InsecureSkipVerify disables origin verification. Development only.
	InsecureSkipVerify bool
}

// Accept upgrades the request. On failure the response has already been
// written.
func Accept(w http.ResponseWriter, r *http.Request, opts *AcceptOptions) (*Conn, error) {
	var wsOpts *websocket.AcceptOptions
	if opts != nil {
		wsOpts = &websocket.AcceptOptions{
			OriginPatterns:     opts.OriginPatterns,
			InsecureSkipVerify: opts.InsecureSkipVerify,
		}
	}
	c, err := websocket.Accept(w, r, wsOpts)
	if err != nil {
		return nil, err
	}
	return &Conn{conn: c}, nil
}

// Close closes the connection normally.
func (c *Conn) Close() error {
	return c.CloseWithReason(StatusNormalClosure, "")
}

// CloseWithReason closes the connection with a status code. Closing twice
// is a no-op.
func (c *Conn) CloseWithReason(code StatusCode, reason string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close(websocket.StatusCode(code), reason)
}

// Read blocks until a message arrives or ctx is done.
func (c *Conn) Read(ctx context.Context) (MessageType, []byte, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		return 0, nil, err
	}
	return MessageType(typ), data, nil
}

// Write sends one message.
func (c *Conn) Write(ctx context.Context, typ MessageType, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	return c.conn.Write(ctx, websocket.MessageType(typ), data)
}

// WriteJSON encodes v and sends it as a text message.
func (c *Conn) WriteJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Write(ctx, MessageText, data)
}

// MessageType is the frame type of a message.
type MessageType int

const (
	MessageText   MessageType = MessageType(websocket.MessageText)
	MessageBinary MessageType = MessageType(websocket.MessageBinary)
)

// StatusCode is a close status code.
type StatusCode int

const (
	StatusNormalClosure   StatusCode = StatusCode(websocket.StatusNormalClosure)
	StatusGoingAway       StatusCode = StatusCode(websocket.StatusGoingAway)
	StatusUnsupportedData StatusCode = StatusCode(websocket.StatusUnsupportedData)
	StatusPolicyViolation StatusCode = StatusCode(websocket.StatusPolicyViolation)
	StatusMessageTooBig   StatusCode = StatusCode(websocket.StatusMessageTooBig)
	StatusInternalError   StatusCode = StatusCode(websocket.StatusInternalError)
)

// Message is the JSON envelope exchanged with browsers.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage encodes payload into an envelope of the given type.
func NewMessage(typ string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}

// ParsePayload decodes the payload into v. An absent payload leaves v
// untouched.
func (m *Message) ParsePayload(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// UnmarshalMessage decodes an envelope.
func UnmarshalMessage(data []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Type == "" {
		return nil, ErrMissingType
	}
	return &m, nil
}

// WriteMessage sends an envelope.
func (c *Conn) WriteMessage(ctx context.Context, m *Message) error {
	return c.WriteJSON(ctx, m)
}

// Config holds per-connection limits.
type Config struct {
	// WriteTimeout bounds each reply. Zero means no timeout.
	WriteTimeout time.Duration

	// PingInterval is how often to ping an idle peer. Zero disables pings.
	PingInterval time.Duration

	// MaxMessageSize is the largest message accepted.
	MaxMessageSize int64
}

// DefaultConfig returns the limits used for browser sessions.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:   10 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 32 * 1024,
	}
}

// RunWithConfig reads messages and passes each to handler until the peer
// goes away, ctx is done, or handler returns an error.
func RunWithConfig(ctx context.Context, conn *Conn, cfg Config, handler func(ctx context.Context, typ MessageType, data []byte) error) error {
	if cfg.MaxMessageSize > 0 {
		conn.conn.SetReadLimit(cfg.MaxMessageSize)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.PingInterval > 0 {
		go func() {
			t := time.NewTicker(cfg.PingInterval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					pingCtx, done := context.WithTimeout(ctx, cfg.PingInterval)
					err := conn.conn.Ping(pingCtx)
					done()
					if err != nil {
						conn.CloseWithReason(StatusGoingAway, "ping timeout")
						return
					}
				}
			}
		}()
	}

	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		hctx := ctx
		var hcancel context.CancelFunc = func() {}
		if cfg.WriteTimeout > 0 {
			hctx, hcancel = context.WithTimeout(ctx, cfg.WriteTimeout)
		}
		err = handler(hctx, typ, data)
		hcancel()
		if err != nil {
			return err
		}
	}
}
