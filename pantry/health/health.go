// health/health.go

// Package health serves a JSON health endpoint built from named checks.
package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/contactform/httputil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Check reports a component's status. A nil error is healthy.
type Check func(ctx context.Context) error

// Response is the JSON body of the health endpoint.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler runs every check per request. Any failing check turns the
// response into 503 with status "error". With no checks it is a plain
// liveness probe answering {"status":"ok"}.
func Handler(checks map[string]Check, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(checks) == 0 {
			httputil.WriteJSON(w, http.StatusOK, Response{Status: "ok"})
			return
		}

		results := make(map[string]string, len(checks))
		failed := false
		for name, check := range checks {
			if check == nil {
				results[name] = "ok"
				continue
			}
			if err := check(r.Context()); err != nil {
				failed = true
				results[name] = "error: " + err.Error()
				if logger != nil {
					logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
				}
				continue
			}
			results[name] = "ok"
		}

		if failed {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, Response{Status: "error", Checks: results})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, Response{Status: "ok", Checks: results})
	})
}

// Mount attaches GET /health to r.
func Mount(r chi.Router, checks map[string]Check, logger *zap.Logger) {
	r.Method(http.MethodGet, "/health", Handler(checks, logger))
}
