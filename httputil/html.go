// httputil/html.go
package httputil

import (
	"bytes"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// Renderer is anything that can render itself as HTML.
type Renderer interface {
	Render(w io.Writer) error
}

// WriteHTML renders doc into a buffer and writes it with status. A render
// failure becomes a plain 500 with nothing of the page sent.
func WriteHTML(w http.ResponseWriter, status int, doc Renderer) {
	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		if jsonLogger != nil {
			jsonLogger.Error("html render failed", zap.Error(err))
		}
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
