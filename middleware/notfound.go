// middleware/notfound.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/contactform/pantry/errors"
	"go.uber.org/zap"
)

// NotFoundHandler logs and answers unknown routes with a JSON 404.
func NotFoundHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logRejected(logger, "not_found", r)
		errors.Write(w, errors.NotFound("The requested resource was not found"))
	}
}

// MethodNotAllowedHandler logs and answers with a JSON 405.
func MethodNotAllowedHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logRejected(logger, "method_not_allowed", r)
		errors.Write(w, errors.MethodNotAllowed("The requested HTTP method is not allowed for this resource"))
	}
}

func logRejected(logger *zap.Logger, msg string, r *http.Request) {
	if logger == nil {
		return
	}
	logger.Info(msg,
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote_ip", r.RemoteAddr),
	)
}
