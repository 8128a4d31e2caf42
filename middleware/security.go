// middleware/security.go

// Package middleware holds the HTTP middleware the router stacks in front
// of every route.
package middleware

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/contactform/config"
)

// SecurityHeadersOptions selects the security headers to send. Empty
// strings and a zero HSTSMaxAge leave the matching header out.
type SecurityHeadersOptions struct {
	XFrameOptions         string
	XContentTypeOptions   string
	ReferrerPolicy        string
	HSTSMaxAge            int // sent on TLS requests only
	HSTSIncludeSubDomains bool
	ContentSecurityPolicy string
	PermissionsPolicy     string
}

// DefaultSecurityHeadersOptions returns the headers used when nothing is
// configured.
func DefaultSecurityHeadersOptions() SecurityHeadersOptions {
	return SecurityHeadersOptions{
		XFrameOptions:         "SAMEORIGIN",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		HSTSMaxAge:            31536000,
		HSTSIncludeSubDomains: true,
	}
}

// SecurityHeaders sets the headers in opts on every response.
func SecurityHeaders(opts SecurityHeadersOptions) func(next http.Handler) http.Handler {
	var hsts string
	if opts.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(opts.HSTSMaxAge)
		if opts.HSTSIncludeSubDomains {
			hsts += "; includeSubDomains"
		}
	}
	static := [][2]string{
		{"X-Frame-Options", opts.XFrameOptions},
		{"X-Content-Type-Options", opts.XContentTypeOptions},
		{"Referrer-Policy", opts.ReferrerPolicy},
		{"Content-Security-Policy", opts.ContentSecurityPolicy},
		{"Permissions-Policy", opts.PermissionsPolicy},
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range static {
				if kv[1] != "" {
					h.Set(kv[0], kv[1])
				}
			}
			if hsts != "" && r.TLS != nil {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersFromConfig builds SecurityHeaders from the config. It is a
// no-op when the config is nil or security headers are disabled.
func SecurityHeadersFromConfig(coreCfg *config.CoreConfig) func(next http.Handler) http.Handler {
	if coreCfg == nil || !coreCfg.Security.EnableSecurityHeaders {
		return passthrough
	}
	s := coreCfg.Security
	return SecurityHeaders(SecurityHeadersOptions{
		XFrameOptions:         s.XFrameOptions,
		XContentTypeOptions:   s.XContentTypeOptions,
		ReferrerPolicy:        s.ReferrerPolicy,
		HSTSMaxAge:            s.HSTSMaxAge,
		HSTSIncludeSubDomains: s.HSTSIncludeSubDomains,
		ContentSecurityPolicy: s.ContentSecurityPolicy,
		PermissionsPolicy:     s.PermissionsPolicy,
	})
}

func passthrough(next http.Handler) http.Handler { return next }
