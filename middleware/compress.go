// middleware/compress.go
package middleware

import (
	"net/http"

	"github.com/dalemusser/contactform/config"
	"github.com/go-chi/chi/v5/middleware"
)

// compressibleTypes are the response types worth compressing. Event
// streams are left out so each clock tick is flushed as written.
var compressibleTypes = []string{
	"text/html",
	"text/css",
	"text/plain",
	"text/javascript",
	"application/javascript",
	"application/json",
}

// CompressFromConfig compresses responses when enabled in the config.
// Levels outside 1-9 are clamped.
func CompressFromConfig(coreCfg *config.CoreConfig) func(next http.Handler) http.Handler {
	if coreCfg == nil || !coreCfg.EnableCompression {
		return passthrough
	}
	return Compress(coreCfg.CompressionLevel)
}

// Compress gzip/deflate-compresses the compressible response types.
func Compress(level int) func(next http.Handler) http.Handler {
	level = min(max(level, 1), 9)
	return middleware.Compress(level, compressibleTypes...)
}
