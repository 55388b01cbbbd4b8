// Package health serves the liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady toggles readiness. The API flips it off when shutdown begins so load balancers
// drain the instance before connections close.
func SetReady(v bool) {
	ready.Store(v)
}

// Probe checks one dependency.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Probes []Probe
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe concurrently and reports 503 when any fails or the instance is
// shutting down.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.Probes))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	healthy := ready.Load()
	for _, p := range h.Probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			result := "ok"
			if err := p.run(r.Context()); err != nil {
				result = err.Error()
			}
			mu.Lock()
			defer mu.Unlock()
			checks[p.Name] = result
			if result != "ok" {
				healthy = false
			}
		}(p)
	}
	wg.Wait()

	status := "ok"
	code := http.StatusOK
	if !ready.Load() {
		status = "shutting_down"
	}
	if !healthy {
		code = http.StatusServiceUnavailable
		if status == "ok" {
			status = "degraded"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": status, "checks": checks})
}

func (p Probe) run(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Check(ctx)
}
