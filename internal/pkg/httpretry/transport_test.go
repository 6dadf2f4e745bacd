package httpretry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"values":[["x"]]}`, string(body))
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, 3).WithDelays(time.Millisecond, 5*time.Millisecond)}
	req, err := http.NewRequest(http.MethodPut, srv.URL, strings.NewReader(`{"values":[["x"]]}`))
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestTransportDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, 3).WithDelays(time.Millisecond, time.Millisecond)}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTransportReturnsLastResponse(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, 2).WithDelays(time.Millisecond, time.Millisecond)}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNewClient(t *testing.T) {
	client := NewClient(nil, 0, 5*time.Second)
	tr, ok := client.Transport.(*Transport)
	require.True(t, ok)
	assert.Equal(t, 3, tr.maxRetries)
	assert.Equal(t, 5*time.Second, client.Timeout)
}

func TestIsRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, isRetryableStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 403, 404} {
		assert.False(t, isRetryableStatus(code), code)
	}
}

func TestTransportPostRetriesOnlyUnappliedStatuses(t *testing.T) {
	tests := []struct {
		status int
		calls  int32
	}{
		{http.StatusInternalServerError, 1},
		{http.StatusBadGateway, 1},
		{http.StatusGatewayTimeout, 1},
		{http.StatusTooManyRequests, 3},
		{http.StatusServiceUnavailable, 3},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := &http.Client{Transport: NewTransport(nil, 2).WithDelays(time.Millisecond, time.Millisecond)}
			resp, err := client.Post(srv.URL, "application/json", strings.NewReader(`{"requests":[{"insertDimension":{}}]}`))
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.calls, atomic.LoadInt32(&calls))
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(http.MethodGet, http.StatusBadGateway))
	assert.True(t, shouldRetry(http.MethodPut, http.StatusInternalServerError))
	assert.False(t, shouldRetry(http.MethodPost, http.StatusInternalServerError))
	assert.False(t, shouldRetry(http.MethodPatch, http.StatusGatewayTimeout))
	assert.True(t, shouldRetry(http.MethodPost, http.StatusTooManyRequests))
	assert.False(t, shouldRetry(http.MethodDelete, http.StatusForbidden))
}
