// middleware/contenttype.go
package middleware

import (
	"mime"
	"net/http"
	"strings"

	"github.com/dalemusser/contactform/pantry/errors"
)

// RequireJSON rejects requests whose Content-Type is not application/json
// or a +json type with 415 and a JSON error body.
func RequireJSON() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || (mt != "application/json" && !strings.HasSuffix(mt, "+json")) {
				errors.Write(w, errors.UnsupportedMediaType("Content-Type must be application/json"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
