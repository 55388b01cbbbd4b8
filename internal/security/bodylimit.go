package security

import (
	"net/http"

	"github.com/noah-isme/backend-quotes/internal/common"
)

// BodyLimit caps JSON payloads such as budget drafts and style trees.
type BodyLimit struct {
	Max int64
}

// Middleware rejects declared oversized bodies with 413 and bounds the rest with
// http.MaxBytesReader so decoders fail once the cap is crossed.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Max <= 0 || r.Body == nil || r.Body == http.NoBody {
			next.ServeHTTP(w, r)
			return
		}
		if r.ContentLength > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body exceeds limit", map[string]int64{"max_bytes": b.Max})
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		next.ServeHTTP(w, r)
	})
}
