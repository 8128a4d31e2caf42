// pprof/pprof.go

// Package pprof mounts the runtime profiling handlers.
package pprof

import (
	stdpprof "net/http/pprof"

	"github.com/go-chi/chi/v5"
)

// Prefix is where the profiles are served.
const Prefix = "/debug/pprof"

// Mount attaches the profiling handlers under Prefix. Callers decide
// whether the environment should expose them at all.
func Mount(r chi.Router) {
	r.Route(Prefix, func(r chi.Router) {
		r.Get("/", stdpprof.Index)
		r.Get("/cmdline", stdpprof.Cmdline)
		r.Get("/profile", stdpprof.Profile)
		r.Get("/symbol", stdpprof.Symbol)
		r.Post("/symbol", stdpprof.Symbol)
		r.Get("/trace", stdpprof.Trace)

		// heap, goroutine, allocs, block, ...
		r.Get("/{name}", stdpprof.Index)
	})
}
