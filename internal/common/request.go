package common

import (
	"net"
	"net/http"
	"strconv"
	"strings"
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPagination derives the page count from the totals.
func NewPagination(page, perPage, total int) Pagination {
	pages := 0
	if perPage > 0 {
		pages = (total + perPage - 1) / perPage
	}
	return Pagination{Page: page, PerPage: perPage, TotalItems: total, TotalPages: pages}
}

// ParsePagination reads ?page and ?limit, clamping limit to maxPerPage.
func ParsePagination(r *http.Request, defaultPerPage, maxPerPage int) (page, perPage int) {
	page = QueryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	return page, QueryLimit(r, defaultPerPage, maxPerPage)
}

// QueryLimit reads ?limit, falling back to def for missing or non-positive values and
// capping at max.
func QueryLimit(r *http.Request, def, max int) int {
	limit := QueryInt(r, "limit", def)
	if limit <= 0 {
		limit = def
	}
	if max > 0 && limit > max {
		limit = max
	}
	return limit
}

// QueryInt parses an integer query parameter, returning def when absent or malformed.
func QueryInt(r *http.Request, key string, def int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// ClientIP returns the first forwarded address, then X-Real-IP, then the peer host.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
