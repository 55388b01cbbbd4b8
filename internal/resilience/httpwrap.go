package resilience

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ErrResponseTooLarge is returned by Fetch when the body exceeds the configured limit.
var ErrResponseTooLarge = errors.New("resilience: response body too large")

// maxRetryAfter caps how long a Retry-After header may stall an attempt.
const maxRetryAfter = 5 * time.Second

// HTTPClient retries outbound calls that fail with a transport error, a 5xx or a 429.
// A nil Breaker disables circuit breaking.
type HTTPClient struct {
	Client      *http.Client
	Breaker     *Breaker
	BaseBackoff time.Duration
	MaxAttempts int
	Jitter      float64
	Target      string
}

// Do sends req until it succeeds, attempts run out or the breaker opens. The body is
// buffered so every attempt replays it.
func (cl HTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if cl.Client == nil {
		return nil, errors.New("resilience: http client not configured")
	}
	attempts := max(cl.MaxAttempts, 1)
	base := cl.BaseBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	body, err := bufferBody(req)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if cl.Breaker != nil && !cl.Breaker.Allow(ctx) {
			countAttempt(cl.Target, "rejected")
			lastErr = ErrOpenCircuit
			break
		}
		attemptReq := req.Clone(ctx)
		if body != nil {
			attemptReq.Body = io.NopCloser(bytes.NewReader(body))
		}
		resp, err := cl.Client.Do(attemptReq)
		if err == nil && !retryable(resp.StatusCode) {
			countAttempt(cl.Target, "ok")
			cl.report(ctx, true)
			return resp, nil
		}
		wait := Backoff(base, attempt, cl.Jitter)
		if err != nil {
			lastErr = err
		} else {
			lastErr = errors.New(resp.Status)
			if after, ok := retryAfter(resp); ok {
				wait = after
			}
			_ = resp.Body.Close()
		}
		countAttempt(cl.Target, "retry")
		cl.report(ctx, false)
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if cl.Target != "" {
		return nil, fmt.Errorf("%s: %w", cl.Target, lastErr)
	}
	return nil, lastErr
}

// Fetch performs a GET and returns at most limit bytes of a 2xx response body with
// its content type.
func (cl HTTPClient) Fetch(ctx context.Context, url string, limit int64) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := cl.Do(ctx, req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		return nil, "", fmt.Errorf("resilience: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > limit {
		return nil, "", ErrResponseTooLarge
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func (cl HTTPClient) report(ctx context.Context, ok bool) {
	if cl.Breaker != nil {
		cl.Breaker.Report(ctx, ok)
	}
}

func retryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

// retryAfter reads a delay-seconds Retry-After header.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0, false
	}
	return min(time.Duration(secs)*time.Second, maxRetryAfter), true
}

func bufferBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return data, nil
}
