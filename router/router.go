// router/router.go

// Package router builds the chi router every route is mounted on.
package router

import (
	"github.com/dalemusser/contactform/config"
	"github.com/dalemusser/contactform/logging"
	"github.com/dalemusser/contactform/metrics"
	"github.com/dalemusser/contactform/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// New creates a chi.Router with the standard middleware stack:
//   - RequestID, RealIP
//   - Recoverer (panic → 500)
//   - security headers and CORS, when enabled
//   - body size limit (MaxRequestBodyBytes)
//   - metrics, request logging, compression
//   - JSON NotFound / MethodNotAllowed handlers
//
// Routes are left to the caller.
func New(coreCfg *config.CoreConfig, logger *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(logging.Recoverer(logger))

	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.LimitBodySize(coreCfg.MaxRequestBodyBytes))

	r.Use(metrics.HTTPMetrics)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.CompressFromConfig(coreCfg))

	r.NotFound(middleware.NotFoundHandler(logger))
	r.MethodNotAllowed(middleware.MethodNotAllowedHandler(logger))

	return r
}
