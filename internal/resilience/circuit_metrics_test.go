package resilience_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-quotes/internal/resilience"
)

func TestBreakerMetricsTransitions(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, resilience.RegisterMetrics(reg))
	require.NoError(t, resilience.RegisterMetrics(reg))
	resilience.BreakerState.Reset()
	resilience.BreakerTransitions.Reset()
	resilience.BreakerOpenedTotal.Reset()

	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	breaker := resilience.NewBreaker(1, 0.5, time.Second).WithClock(clock.Now).WithTarget("logo")
	ctx := context.Background()

	require.True(t, breaker.Allow(ctx))
	breaker.Report(ctx, false)
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerState.WithLabelValues("logo")))

	clock.Advance(time.Second)
	require.True(t, breaker.Allow(ctx))
	require.Equal(t, 2.0, testutil.ToFloat64(resilience.BreakerState.WithLabelValues("logo")))

	breaker.Report(ctx, true)
	require.Equal(t, 0.0, testutil.ToFloat64(resilience.BreakerState.WithLabelValues("logo")))
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerOpenedTotal.WithLabelValues("logo")))
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues("logo", "closed", "open")))
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues("logo", "open", "half_open")))
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.BreakerTransitions.WithLabelValues("logo", "half_open", "closed")))
}

func TestHTTPClientCountsAttempts(t *testing.T) {
	require.NoError(t, resilience.RegisterMetrics(prometheus.NewRegistry()))
	resilience.OutboundAttempts.Reset()

	cl := resilience.HTTPClient{
		Client:      &http.Client{Transport: failingTransport{}},
		Breaker:     resilience.NewBreaker(1, 0.5, time.Minute),
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		Target:      "notify",
	}
	req, err := http.NewRequest(http.MethodPost, "http://hooks.invalid/q", nil)
	require.NoError(t, err)
	_, err = cl.Do(context.Background(), req)
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.OutboundAttempts.WithLabelValues("notify", "retry")))
	require.Equal(t, 1.0, testutil.ToFloat64(resilience.OutboundAttempts.WithLabelValues("notify", "rejected")))
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}
