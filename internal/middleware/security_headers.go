package middleware

import (
	"net/http"
	"strings"
)

const (
	pageCSP = "default-src 'self'; " +
		"script-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:; " +
		"font-src 'self'; " +
		"connect-src 'self'; " +
		"frame-ancestors 'none'"

	// Raw uploads are user content: no scripts, opaque origin.
	uploadCSP = "default-src 'none'; " +
		"img-src 'self'; " +
		"style-src 'unsafe-inline'; " +
		"sandbox; " +
		"frame-ancestors 'none'"
)

// SecurityHeaders adds security-related HTTP headers to all responses
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if strings.HasPrefix(r.URL.Path, "/uploads/") {
			w.Header().Set("Content-Security-Policy", uploadCSP)
		} else {
			w.Header().Set("Content-Security-Policy", pageCSP)
		}

		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")

		if r.TLS != nil {
			w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}
