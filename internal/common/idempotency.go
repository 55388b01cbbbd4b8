package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const idemPending = "pending"

// Idem guards mutating routes with the Idempotency-Key header. Keys are scoped to the
// authenticated user, the method and the path. A key whose request failed with a 5xx is
// released so the client may retry it.
type Idem struct {
	R   redis.UniversalClient
	TTL time.Duration
}

func idemKey(userID, method, path, key string) string {
	sum := sha256.Sum256([]byte(userID + "\x00" + method + "\x00" + path + "\x00" + key))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware rejects a repeated key with 409 until it expires.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		ttl := i.TTL
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		ctx := r.Context()
		userID, _ := UserID(ctx)
		key := idemKey(userID, r.Method, r.URL.Path, header)
		ok, err := i.R.SetNX(ctx, key, idemPending, ttl).Result()
		if err != nil {
			JSONError(w, http.StatusServiceUnavailable, "IDEMPOTENCY_UNAVAILABLE", "idempotency store error", nil)
			return
		}
		if !ok {
			details := map[string]any{}
			if prev, err := i.R.Get(ctx, key).Result(); err == nil && prev != idemPending {
				if status, convErr := strconv.Atoi(prev); convErr == nil {
					details["original_status"] = status
				}
			}
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", details)
			return
		}

		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			// The request context may already be cancelled.
			bg := context.Background()
			if rec.status >= http.StatusInternalServerError {
				_ = i.R.Del(bg, key).Err()
				return
			}
			_ = i.R.Set(bg, key, strconv.Itoa(rec.status), ttl).Err()
		}()
		next.ServeHTTP(rec, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (s *statusWriter) WriteHeader(code int) {
	if !s.wrote {
		s.status = code
		s.wrote = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	s.wrote = true
	return s.ResponseWriter.Write(b)
}
