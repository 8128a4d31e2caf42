package sse

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestEvent_Bytes(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{"data only", Event{Data: "hi"}, "data: hi\n\n"},
		{"typed", Event{Event: "time", Data: "1700000000000"}, "event: time\ndata: 1700000000000\n\n"},
		{"multiline", Event{Data: "a\nb"}, "data: a\ndata: b\n\n"},
		{"all fields", Event{ID: "7", Event: "x", Data: "d", Retry: 500}, "id: 7\nevent: x\nretry: 500\ndata: d\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(tt.ev.Bytes()); got != tt.want {
				t.Errorf("Bytes() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewJSONEvent(t *testing.T) {
	ev, err := NewJSONEvent("state", map[string]bool{"ok": true})
	if err != nil {
		t.Fatalf("NewJSONEvent: %v", err)
	}
	if ev.Event != "state" || ev.Data != `{"ok":true}` {
		t.Errorf("event = %+v", ev)
	}
}

func TestNewStream_Headers(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/clock", nil)
	req.Header.Set("Last-Event-ID", "42")

	s, err := NewStream(rec, req)
	if err != nil {
		t.Fatalf("NewStream: %v", err)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if s.LastEventID != "42" {
		t.Errorf("LastEventID = %q", s.LastEventID)
	}
}

type noFlush struct{ http.ResponseWriter }

func TestNewStream_RequiresFlusher(t *testing.T) {
	_, err := NewStream(noFlush{httptest.NewRecorder()}, httptest.NewRequest(http.MethodGet, "/", nil))
	if !errors.Is(err, ErrFlushNotSupported) {
		t.Errorf("err = %v, want ErrFlushNotSupported", err)
	}
}

func TestServeFunc(t *testing.T) {
	rec := httptest.NewRecorder()
	s, err := NewStream(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatal(err)
	}

	err = ServeFunc(context.Background(), s, Config{RetryInterval: 1500 * time.Millisecond}, func(ctx context.Context, send func(*Event) error) error {
		return send(NewEventWithType("time", "1"))
	})
	if err != nil {
		t.Fatalf("ServeFunc: %v", err)
	}

	body := rec.Body.String()
	if !strings.HasPrefix(body, "retry: 1500\n\n") {
		t.Errorf("body should start with retry, got %q", body)
	}
	if !strings.Contains(body, "event: time\ndata: 1\n\n") {
		t.Errorf("body missing event: %q", body)
	}
	if err := s.SendEvent("time", "2"); !errors.Is(err, ErrStreamClosed) {
		t.Errorf("send after serve = %v, want ErrStreamClosed", err)
	}
}
