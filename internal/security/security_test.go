package security

import (
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBodyLimitAllowsWithinLimit(t *testing.T) {
	var captured string
	handler := BodyLimit{Max: 10}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured = string(data)
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/budgets", strings.NewReader("hello")))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "hello", captured)
}

func TestBodyLimitRejectsDeclaredLength(t *testing.T) {
	handler := BodyLimit{Max: 5}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/budgets", strings.NewReader("excessive")))
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	require.Contains(t, rr.Body.String(), "PAYLOAD_TOO_LARGE")
}

func TestBodyLimitBoundsUndeclaredLength(t *testing.T) {
	var readErr error
	handler := BodyLimit{Max: 5}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/budgets", strings.NewReader("excessive"))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.Error(t, readErr)
}

func TestHeadersMiddleware(t *testing.T) {
	handler := Headers{HSTSMaxAge: 600, NoStorePrefixes: []string{"/api/"}}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "https://quotes.example.com/api/v1/budgets/x/document", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "max-age=600", rr.Header().Get("Strict-Transport-Security"))
	require.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Empty(t, rr.Header().Get("Strict-Transport-Security"))
	require.Empty(t, rr.Header().Get("Cache-Control"))
}
