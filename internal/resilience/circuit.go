// Package resilience guards outbound calls (logo downloads, notification webhooks) with a
// circuit breaker and bounded retries.
package resilience

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// ErrOpenCircuit is returned when the circuit breaker refuses a request.
var ErrOpenCircuit = errors.New("resilience: circuit breaker open")

// State represents the current breaker state.
type State int

const (
	// Closed accepts all requests and tracks outcomes.
	Closed State = iota
	// Open rejects requests until the cool-off period expires.
	Open
	// HalfOpen admits one probe to decide between Closed and Open.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Breaker opens once the failure ratio over the most recent outcomes reaches a
// threshold. Outcomes live in a fixed ring so old failures age out.
type Breaker struct {
	mu           sync.Mutex
	state        State
	window       []bool
	next         int
	filled       int
	minRequests  int
	failureRatio float64
	openFor      time.Duration
	openedAt     time.Time
	probing      bool
	target       string
	logger       zerolog.Logger
	now          func() time.Time
}

// NewBreaker builds a breaker that evaluates the last 2*minRequests outcomes (at
// least 10) and opens for openFor when failures make up failureRatio of them.
func NewBreaker(minRequests int, failureRatio float64, openFor time.Duration) *Breaker {
	if minRequests <= 0 {
		minRequests = 1
	}
	if failureRatio <= 0 || failureRatio > 1 {
		failureRatio = 0.5
	}
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	return &Breaker{
		window:       make([]bool, max(minRequests*2, 10)),
		minRequests:  minRequests,
		failureRatio: failureRatio,
		openFor:      openFor,
		target:       "default",
		logger:       zerolog.Nop(),
		now:          time.Now,
	}
}

// WithTarget names the guarded dependency in metrics and logs.
func (b *Breaker) WithTarget(target string) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t := strings.TrimSpace(target); t != "" {
		b.target = t
	}
	b.publishState()
	return b
}

// WithClock replaces the clock used for the cool-off period.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now != nil {
		b.now = now
	}
	return b
}

// WithLogger sets the fallback logger for transitions; a logger on the request
// context takes precedence.
func (b *Breaker) WithLogger(logger zerolog.Logger) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.logger = logger
	return b
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed. After the cool-off the first caller becomes
// the half-open probe and everyone else is refused until it reports.
func (b *Breaker) Allow(ctx context.Context) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.openedAt) < b.openFor {
			return false
		}
		b.moveTo(ctx, HalfOpen)
	case HalfOpen:
		if b.probing {
			return false
		}
	}
	b.probing = true
	return true
}

// Report records the outcome of an admitted call.
func (b *Breaker) Report(ctx context.Context, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		return
	case HalfOpen:
		if success {
			b.moveTo(ctx, Closed)
		} else {
			b.moveTo(ctx, Open)
		}
		return
	}

	b.window[b.next] = !success
	b.next = (b.next + 1) % len(b.window)
	if b.filled < len(b.window) {
		b.filled++
	}
	if b.filled < b.minRequests {
		return
	}
	failures := 0
	for i := 0; i < b.filled; i++ {
		if b.window[i] {
			failures++
		}
	}
	if float64(failures)/float64(b.filled) >= b.failureRatio {
		b.moveTo(ctx, Open)
	}
}

func (b *Breaker) moveTo(ctx context.Context, next State) {
	prev := b.state
	b.state = next
	b.probing = false
	b.next, b.filled = 0, 0
	clear(b.window)
	if next == Open {
		b.openedAt = b.now()
	}
	b.publishState()
	if prev == next {
		return
	}

	if BreakerTransitions != nil {
		BreakerTransitions.WithLabelValues(b.target, prev.String(), next.String()).Inc()
	}
	if next == Open && BreakerOpenedTotal != nil {
		BreakerOpenedTotal.WithLabelValues(b.target).Inc()
	}
	logger := b.logger
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		logger = *l
	}
	evt := logger.Info().Str("target", b.target).Str("from_state", prev.String()).Str("to_state", next.String())
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		evt = evt.Str("trace_id", sc.TraceID().String())
	}
	evt.Msg("breaker_transition")
}

func (b *Breaker) publishState() {
	if BreakerState != nil {
		BreakerState.WithLabelValues(b.target).Set(float64(b.state))
	}
}

// Backoff returns base doubled per attempt, spread by ±jitterPct (0.2 == 20%).
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << uint(attempt-1)
	if jitterPct <= 0 {
		return d
	}
	spread := float64(d) * jitterPct
	return d + time.Duration((rand.Float64()*2-1)*spread)
}
