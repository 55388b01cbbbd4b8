package security

import (
	"net/http"
	"strconv"
	"strings"
)

// Headers attaches hardening headers to API responses.
type Headers struct {
	HSTSMaxAge int
	// NoStorePrefixes lists path prefixes whose responses must never be cached,
	// e.g. generated quote documents.
	NoStorePrefixes []string
}

// Middleware applies the configured headers.
func (h Headers) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "no-referrer")
		if r.TLS != nil && h.HSTSMaxAge > 0 {
			headers.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(h.HSTSMaxAge))
		}
		for _, prefix := range h.NoStorePrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				headers.Set("Cache-Control", "no-store")
				break
			}
		}
		next.ServeHTTP(w, r)
	})
}
