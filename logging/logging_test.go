package logging

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestBuildLogger(t *testing.T) {
	tests := []struct {
		level, env string
		wantErr    bool
	}{
		{"debug", "dev", false},
		{"INFO", "prod", false},
		{"warn", "prod", false},
		{"loud", "dev", true},
	}
	for _, tt := range tests {
		logger, err := BuildLogger(tt.level, tt.env)
		if (err != nil) != tt.wantErr {
			t.Errorf("BuildLogger(%q, %q) error = %v, wantErr %v", tt.level, tt.env, err, tt.wantErr)
		}
		if err == nil && logger == nil {
			t.Errorf("BuildLogger(%q, %q) returned nil logger", tt.level, tt.env)
		}
	}
}

func TestRecovererWritesServerError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := Recoverer(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Errorf("panic not logged: %v", logs.All())
	}
}

func TestRequestLoggerRecordsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/contact", nil))

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("got %d request logs, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["status"] != int64(http.StatusUnprocessableEntity) || fields["path"] != "/contact" {
		t.Errorf("fields = %v", fields)
	}
}
