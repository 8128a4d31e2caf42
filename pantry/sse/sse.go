// sse/sse.go

// Package sse writes Server-Sent Events streams.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Event is one Server-Sent Event.
type Event struct {
	// ID is echoed back by the client as Last-Event-ID on reconnect.
	ID string

	// Event is the event type. Empty means "message".
	Event string

	// Data is the payload. Newlines split it into several data lines.
	Data string

	// Retry is the reconnect delay in milliseconds, sent when non-zero.
	Retry int
}

// NewEventWithType creates an event with type and data.
func NewEventWithType(eventType, data string) *Event {
	return &Event{Event: eventType, Data: data}
}

// NewJSONEvent creates an event with JSON-encoded data.
func NewJSONEvent(eventType string, v any) (*Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Event{Event: eventType, Data: string(data)}, nil
}

// Bytes serializes the event in wire format.
func (e *Event) Bytes() []byte {
	var buf strings.Builder

	if e.ID != "" {
		buf.WriteString("id: ")
		buf.WriteString(e.ID)
		buf.WriteByte('\n')
	}
	if e.Event != "" {
		buf.WriteString("event: ")
		buf.WriteString(e.Event)
		buf.WriteByte('\n')
	}
	if e.Retry > 0 {
		buf.WriteString("retry: ")
		buf.WriteString(strconv.Itoa(e.Retry))
		buf.WriteByte('\n')
	}
	if e.Data != "" {
		for _, line := range strings.Split(e.Data, "\n") {
			buf.WriteString("data: ")
			buf.WriteString(line)
			buf.WriteByte('\n')
		}
	}

	buf.WriteByte('\n')
	return []byte(buf.String())
}

// Stream is an SSE connection to one client.
type Stream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
	closed  bool

	// LastEventID is the ID sent by the client on reconnection.
	LastEventID string
}

// NewStream sets the SSE headers on w and wraps it. It fails when w
// cannot flush.
func NewStream(w http.ResponseWriter, r *http.Request) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrFlushNotSupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	return &Stream{
		w:           w,
		flusher:     flusher,
		LastEventID: r.Header.Get("Last-Event-ID"),
	}, nil
}

// Send writes event and flushes it.
func (s *Stream) Send(event *Event) error {
	return s.write(event.Bytes())
}

// SendEvent sends an event with type and data.
func (s *Stream) SendEvent(eventType, data string) error {
	return s.Send(NewEventWithType(eventType, data))
}

// SendComment sends a comment line. Clients ignore it; proxies see traffic.
func (s *Stream) SendComment(comment string) error {
	return s.write([]byte(fmt.Sprintf(": %s\n\n", comment)))
}

// SendRetry tells the client how long to wait before reconnecting.
func (s *Stream) SendRetry(ms int) error {
	return s.write([]byte(fmt.Sprintf("retry: %d\n\n", ms)))
}

func (s *Stream) write(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Close marks the stream closed. Later sends fail with ErrStreamClosed.
func (s *Stream) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Config holds stream settings.
type Config struct {
	// KeepAliveInterval is how often to send keep-alive comments.
	// Zero disables keep-alive.
	KeepAliveInterval time.Duration

	// RetryInterval is the reconnect delay suggested to clients.
	// Zero sends none.
	RetryInterval time.Duration
}

// DefaultConfig returns the stream defaults.
func DefaultConfig() Config {
	return Config{
		KeepAliveInterval: 30 * time.Second,
		RetryInterval:     3 * time.Second,
	}
}

// ServeFunc runs fn with a send function bound to stream. Keep-alives run
// alongside fn. It returns when fn returns; a failed keep-alive cancels
// fn's context.
func ServeFunc(ctx context.Context, stream *Stream, cfg Config, fn func(ctx context.Context, send func(*Event) error) error) error {
	defer stream.Close()

	if cfg.RetryInterval > 0 {
		if err := stream.SendRetry(int(cfg.RetryInterval.Milliseconds())); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.KeepAliveInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.KeepAliveInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := stream.SendComment("keep-alive"); err != nil {
						cancel()
						return
					}
				}
			}
		}()
	}

	return fn(ctx, stream.Send)
}
