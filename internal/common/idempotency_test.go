package common

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestIdemRejectsReplays(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	calls := 0
	h := Idem{R: rdb, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusAccepted)
	}))

	send := func(user, key string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/budgets/x/document/jobs", nil)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		req = req.WithContext(WithUserID(req.Context(), user))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusAccepted, send("u1", "k1"))
	require.Equal(t, http.StatusConflict, send("u1", "k1"))
	require.Equal(t, http.StatusAccepted, send("u2", "k1"))
	require.Equal(t, http.StatusAccepted, send("u1", ""))
	require.Equal(t, http.StatusAccepted, send("u1", ""))
	require.Equal(t, 4, calls)

	mr.FastForward(2 * time.Minute)
	require.Equal(t, http.StatusAccepted, send("u1", "k1"))
}

func TestIdemReleasesFailedRequests(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	status := http.StatusServiceUnavailable
	h := Idem{R: rdb, TTL: time.Minute}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/budgets", nil)
		req.Header.Set("Idempotency-Key", "create-1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusServiceUnavailable, send().Code)
	status = http.StatusCreated
	require.Equal(t, http.StatusCreated, send().Code)

	replay := send()
	require.Equal(t, http.StatusConflict, replay.Code)
	require.Contains(t, replay.Body.String(), `"original_status":201`)
}
