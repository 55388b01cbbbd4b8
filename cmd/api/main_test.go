package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/cors"
	"github.com/stretchr/testify/require"
)

func preflight(t *testing.T, opts cors.Options, origin string) http.Header {
	t.Helper()
	h := cors.Handler(opts)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/budgets", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Header()
}

func TestCORSWildcardWithoutCredentials(t *testing.T) {
	opts := corsOptions(nil)
	require.Equal(t, []string{"*"}, opts.AllowedOrigins)
	require.False(t, opts.AllowCredentials)

	headers := preflight(t, opts, "https://anywhere.example.com")
	require.Equal(t, "*", headers.Get("Access-Control-Allow-Origin"))
	require.Empty(t, headers.Get("Access-Control-Allow-Credentials"))
}

func TestCORSExplicitOriginsWithCredentials(t *testing.T) {
	opts := corsOptions([]string{"https://app.example.com"})
	require.True(t, opts.AllowCredentials)

	headers := preflight(t, opts, "https://app.example.com")
	require.Equal(t, "https://app.example.com", headers.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", headers.Get("Access-Control-Allow-Credentials"))

	headers = preflight(t, opts, "https://evil.example.com")
	require.Empty(t, headers.Get("Access-Control-Allow-Origin"))
}
