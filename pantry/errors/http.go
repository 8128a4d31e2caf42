// errors/http.go
package errors

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Response is the JSON body written for an error.
type Response struct {
	Error *Error `json:"error"`
}

// Write writes err as a JSON error response.
func Write(w http.ResponseWriter, err error) {
	writeError(w, From(err))
}

// WriteWithLogger is Write that also logs server-side failures.
func WriteWithLogger(w http.ResponseWriter, err error, logger *zap.Logger) {
	e := From(err)
	if e.HTTPStatus() >= 500 && logger != nil {
		logger.Error("request failed",
			zap.String("code", e.Code),
			zap.String("message", e.Message),
			zap.Error(e.Err),
		)
	}
	writeError(w, e)
}

func writeError(w http.ResponseWriter, e *Error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.HTTPStatus())
	_ = json.NewEncoder(w).Encode(Response{Error: e})
}

// HandlerFunc is a handler that reports failure by returning an error.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// WrapWithLogger adapts h to http.HandlerFunc, writing any returned error.
func WrapWithLogger(h HandlerFunc, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			WriteWithLogger(w, err, logger)
		}
	}
}
