// Package httpretry provides an http.RoundTripper with automatic retry logic,
// exponential backoff, and jitter for the Google Workspace API clients.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/bsc-coop/ops-admin/internal/pkg/logger"
)

// Transport wraps a base RoundTripper with retry logic using exponential
// backoff and jitter.
type Transport struct {
	base       http.RoundTripper
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewTransport creates a Transport around base. A nil base uses
// http.DefaultTransport. maxRetries is the number of retry attempts after the
// initial request (default 3).
func NewTransport(base http.RoundTripper, maxRetries int) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Transport{
		base:       base,
		maxRetries: maxRetries,
		baseDelay:  1 * time.Second,
		maxDelay:   30 * time.Second,
	}
}

// WithDelays overrides the backoff bounds.
func (t *Transport) WithDelays(base, max time.Duration) *Transport {
	t.baseDelay = base
	t.maxDelay = max
	return t
}

// NewClient returns an http.Client using a retrying transport around base.
func NewClient(base http.RoundTripper, maxRetries int, timeout time.Duration) *http.Client {
	return &http.Client{Transport: NewTransport(base, maxRetries), Timeout: timeout}
}

// RoundTrip executes the request with retry logic.
// Idempotent requests retry on retryable status codes (429, 500, 502, 503,
// 504) and transient network errors. POST and PATCH requests, such as a
// tracker row insert, only retry on 429 and 503, where the server did not
// apply the request. It does NOT retry on client errors or context
// cancellation. Requests whose body cannot be replayed are sent once.
// On the final attempt the response is returned as-is so the caller can
// inspect the status code and body.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if ctx.Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, ctx.Err()
		}

		attemptReq := req
		if attempt > 0 {
			attemptReq = req.Clone(ctx)
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: failed to reset request body: %w", err)
				}
				attemptReq.Body = body
			}

			delay := t.calculateDelay(attempt)
			logger.Warn("httpretry: retrying request",
				"attempt", attempt, "max", t.maxRetries, "method", req.Method,
				"host", req.URL.Host, "path", req.URL.Path, "wait", delay)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, ctx.Err()
			}
		}

		resp, err := t.base.RoundTrip(attemptReq)
		if err != nil {
			lastErr = err
			// A failed POST may still have been applied server-side.
			if ctx.Err() != nil || !replayable || !idempotent(req.Method) {
				return nil, err
			}
			continue
		}

		if !shouldRetry(req.Method, resp.StatusCode) || !replayable || attempt == t.maxRetries {
			return resp, nil
		}

		// Retryable status: drain the body so the connection is reused
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: server returned retryable status %d", resp.StatusCode)
	}

	return nil, lastErr
}

// calculateDelay returns the backoff duration for the given retry attempt.
// Uses exponential backoff with full jitter: random(0, min(maxDelay, baseDelay * 2^(attempt-1))).
func (t *Transport) calculateDelay(attempt int) time.Duration {
	expDelay := float64(t.baseDelay) * math.Pow(2, float64(attempt-1))
	if expDelay > float64(t.maxDelay) {
		expDelay = float64(t.maxDelay)
	}

	jittered := time.Duration(rand.Float64() * expDelay)

	// Minimum delay avoids busy-looping against a struggling API
	if jittered < 10*time.Millisecond {
		jittered = 10 * time.Millisecond
	}
	return jittered
}

func idempotent(method string) bool {
	return method != http.MethodPost && method != http.MethodPatch
}

// shouldRetry reports whether a response with statusCode may be retried for
// a request with the given method.
func shouldRetry(method string, statusCode int) bool {
	if idempotent(method) {
		return isRetryableStatus(statusCode)
	}
	return statusCode == http.StatusTooManyRequests || statusCode == http.StatusServiceUnavailable
}

// isRetryableStatus returns true for 429, 500, 502, 503 and 504.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
