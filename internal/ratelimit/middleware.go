// Package ratelimit throttles expensive endpoints per user.
package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/backend-quotes/internal/common"
)

// Handler enforces rate limits before delegating to the next handler. Limiter failures
// let the request through.
type Handler struct {
	Limiter Allower
	Key     func(*http.Request) string
	OnError func(error)
	Now     func() time.Time
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	keyFn := h.Key
	if keyFn == nil {
		keyFn = UserOrIP
	}
	now := h.Now
	if now == nil {
		now = time.Now
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		decision, err := h.Limiter.Allow(r.Context(), keyFn(r))
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.FormatInt(decision.Limit, 10))
		headers.Set("X-RateLimit-Remaining", strconv.FormatInt(decision.Remaining, 10))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(decision.Reset.Sub(now()).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// UserOrIP keys requests by authenticated user, falling back to the client address.
func UserOrIP(r *http.Request) string {
	if userID, ok := common.UserID(r.Context()); ok && userID != "" {
		return "user:" + userID
	}
	return "ip:" + common.ClientIP(r)
}
