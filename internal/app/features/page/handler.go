// internal/app/features/page/handler.go
package page

import (
	"net/http"
	"time"

	"github.com/dalemusser/contactform/httputil"
	"github.com/dalemusser/contactform/internal/app/features/clock"
	"github.com/go-chi/chi/v5"
)

// Handler serves the host page.
type Handler struct {
	Store *Store
	Now   func() time.Time
}

// NewHandler creates a Handler over store.
func NewHandler(store *Store) *Handler {
	return &Handler{Store: store, Now: time.Now}
}

// ServeHTTP renders a fresh copy of the page with the clock stamped.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	doc := h.Store.Session()
	clock.New(clock.ElementTarget(doc.GetElementByID(clock.TargetID)), nil, clock.WithNow(h.Now)).Tick()
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteHTML(w, http.StatusOK, doc)
}

// Mount attaches GET / and the static script to r.
func (h *Handler) Mount(r chi.Router) {
	r.Method(http.MethodGet, "/", h)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(StaticFS()))))
}
