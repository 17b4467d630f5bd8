package transport

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-gateway/internal/testutil"
	mcperrors "github.com/ajitpratap0/mcp-gateway/pkg/errors"
)

func TestFetchAllPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		// earlier calls answer later
		if strings.Contains(string(body), `"n":0`) {
			time.Sleep(30 * time.Millisecond)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithConcurrency(4))
	var calls []Call
	for i := 0; i < 5; i++ {
		c, err := PostJSON(srv.URL, map[string]int{"n": i}, "echo")
		require.NoError(t, err)
		calls = append(calls, c)
	}

	replies := f.FetchAll(context.Background(), calls)
	require.Len(t, replies, 5)
	for i, r := range replies {
		assert.True(t, r.OK())
		assert.JSONEq(t, `{"n":`+string(rune('0'+i))+`}`, string(r.Body))
	}
}

func TestFetchAllCancelDoesNotLeak(t *testing.T) {
	leaks := testutil.NewLeakDetector(t)

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))

	tr := &http.Transport{}
	f := NewHTTPFetcher(WithHTTPClient(&http.Client{Transport: tr}), WithConcurrency(2))
	var calls []Call
	for i := 0; i < 6; i++ {
		c, err := PostJSON(srv.URL, map[string]int{"n": i}, "tools/call")
		require.NoError(t, err)
		calls = append(calls, c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	replies := f.FetchAll(ctx, calls)
	require.Len(t, replies, 6)
	for _, r := range replies {
		assert.Error(t, r.Err)
	}

	close(release)
	srv.Close()
	tr.CloseIdleConnections()
	leaks.Check()
}

func TestFetchAllMixedEndpoints(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer up.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer broken.Close()

	f := NewHTTPFetcher(WithHeader("Authorization", "Bearer token"))
	c1, _ := PostJSON(up.URL, struct{}{}, "initialize")
	c2, _ := PostJSON(broken.URL, struct{}{}, "initialize")
	c3, _ := PostJSON("http://127.0.0.1:1/unreachable", struct{}{}, "initialize")

	replies := f.FetchAll(context.Background(), []Call{c1, c2, c3})
	require.Len(t, replies, 3)

	assert.True(t, replies[0].OK())
	assert.Equal(t, up.URL, replies[0].URL)

	assert.False(t, replies[1].OK())
	assert.Equal(t, http.StatusNotFound, replies[1].StatusCode)
	assert.NoError(t, replies[1].Err)

	assert.False(t, replies[2].OK())
	assert.Error(t, replies[2].Err)
	assert.Zero(t, replies[2].StatusCode)
}

func TestFetchRetries(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "{}")
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithRetry(RetryConfig{MaxRetries: 3, InitialRetryDelay: time.Millisecond}))
	c, _ := PostJSON(srv.URL, struct{}{}, "tools/list")

	replies := f.FetchAll(context.Background(), []Call{c})
	assert.True(t, replies[0].OK())
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithRetry(RetryConfig{MaxRetries: 3, InitialRetryDelay: time.Millisecond}))
	c, _ := PostJSON(srv.URL, struct{}{}, "tools/list")

	replies := f.FetchAll(context.Background(), []Call{c})
	assert.Equal(t, http.StatusBadRequest, replies[0].StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithTimeout(20 * time.Millisecond))
	c, _ := PostJSON(srv.URL, struct{}{}, "initialize")

	replies := f.FetchAll(context.Background(), []Call{c})
	assert.Error(t, replies[0].Err)
}

func TestCircuitBreakerOpens(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(WithCircuitBreaker(CircuitBreakerConfig{Enabled: true, FailureThreshold: 2, Timeout: time.Minute}))
	c, _ := PostJSON(srv.URL, struct{}{}, "tools/call")

	for i := 0; i < 4; i++ {
		f.FetchAll(context.Background(), []Call{c})
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	replies := f.FetchAll(context.Background(), []Call{c})
	assert.True(t, mcperrors.IsCode(replies[0].Err, mcperrors.CodeCircuitOpen))
}

func TestCircuitBreakerHalfOpen(t *testing.T) {
	var transitions []string
	cb := newCircuitBreaker(CircuitBreakerConfig{Enabled: true, FailureThreshold: 1, SuccessThreshold: 1, Timeout: 10 * time.Millisecond}, func(from, to breakerState) {
		transitions = append(transitions, string(from)+"->"+string(to))
	})
	cb.failed()
	assert.False(t, cb.allow())

	time.Sleep(20 * time.Millisecond)
	assert.True(t, cb.allow())
	cb.succeeded()
	assert.Equal(t, circuitClosed, cb.state)
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestBackoff(t *testing.T) {
	cfg := RetryConfig{InitialRetryDelay: 100 * time.Millisecond, MaxRetryDelay: 300 * time.Millisecond}.withDefaults()

	assert.InDelta(t, float64(100*time.Millisecond), float64(cfg.backoff(1)), float64(10*time.Millisecond))
	assert.InDelta(t, float64(200*time.Millisecond), float64(cfg.backoff(2)), float64(20*time.Millisecond))
	assert.InDelta(t, float64(300*time.Millisecond), float64(cfg.backoff(5)), float64(30*time.Millisecond))
}

func TestFetcherFunc(t *testing.T) {
	var f Fetcher = FetcherFunc(func(ctx context.Context, calls []Call) []Reply {
		return []Reply{{URL: calls[0].URL, StatusCode: http.StatusOK}}
	})
	replies := f.FetchAll(context.Background(), []Call{{URL: "x"}})
	assert.True(t, replies[0].OK())
}
