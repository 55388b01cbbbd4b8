package common

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	page, perPage := ParsePagination(httptest.NewRequest(http.MethodGet, "/budgets", nil), 20, 100)
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)

	page, perPage = ParsePagination(httptest.NewRequest(http.MethodGet, "/budgets?page=3&limit=500", nil), 20, 100)
	require.Equal(t, 3, page)
	require.Equal(t, 100, perPage)

	page, perPage = ParsePagination(httptest.NewRequest(http.MethodGet, "/budgets?page=-2&limit=abc", nil), 20, 100)
	require.Equal(t, 1, page)
	require.Equal(t, 20, perPage)
}

func TestNewPagination(t *testing.T) {
	require.Equal(t, Pagination{Page: 2, PerPage: 20, TotalItems: 41, TotalPages: 3}, NewPagination(2, 20, 41))
	require.Equal(t, 0, NewPagination(1, 20, 0).TotalPages)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.4:5123"
	require.Equal(t, "198.51.100.4", ClientIP(req))

	req.Header.Set("X-Real-IP", "192.0.2.9")
	require.Equal(t, "192.0.2.9", ClientIP(req))

	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")
	require.Equal(t, "203.0.113.7", ClientIP(req))
}
