package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-gateway/pkg/observability"
)

func newTestServer(t *testing.T, ropts []RouterOption, hopts ...HTTPOption) *httptest.Server {
	t.Helper()
	router, err := NewRouter(testCatalog(nil), ropts...)
	require.NoError(t, err)
	srv := httptest.NewServer(NewHTTPHandler(router, hopts...))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func TestHTTPHandlerPost(t *testing.T) {
	srv := newTestServer(t, []RouterOption{WithAccessKey("sample")})

	resp, body := post(t, srv.URL+"/?accessKey=sample", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Contains(t, body, `"get_msgs"`)

	resp, body = post(t, srv.URL+"/?accessKey=wrong", `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"code":-32603`)
	assert.Contains(t, body, "Invalid accessKey.")
}

func TestHTTPHandlerNoBody(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, body := post(t, srv.URL, `{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Empty(t, body)
}

func TestHTTPHandlerMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodPost, resp.Header.Get("Allow"))
}

func TestHTTPHandlerLockTimeout(t *testing.T) {
	lock := NewLock()
	require.True(t, lock.TryLock(context.Background(), time.Second))
	defer lock.Unlock()

	srv := newTestServer(t, []RouterOption{WithLock(lock), WithLockTimeout(10 * time.Millisecond)})

	resp, body := post(t, srv.URL, `{"jsonrpc":"2.0","id":1,"method":"initialize"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "Timeout.", strings.TrimSpace(body))
}

func TestHTTPHandlerBodyLimit(t *testing.T) {
	srv := newTestServer(t, nil, WithMaxBodyBytes(16))

	resp, _ := post(t, srv.URL, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestHTTPHandlerHealthAndMetrics(t *testing.T) {
	metrics := observability.NewPrometheusMetrics(observability.MetricsConfig{})
	srv := newTestServer(t, []RouterOption{WithMetrics(metrics)}, WithHTTPMetrics(metrics))

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	post(t, srv.URL, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), `mcp_gateway_requests_total{method="tools/list",outcome="ok"} 1`)
}

func TestHTTPHandlerOrigins(t *testing.T) {
	srv := newTestServer(t, nil, WithAllowedOrigins("http://localhost", "https://app.example.com"))

	tests := []struct {
		origin string
		want   int
	}{
		{"", http.StatusOK},
		{"http://localhost:3000", http.StatusOK},
		{"https://app.example.com", http.StatusOK},
		{"https://evil.example.com", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPost, srv.URL, bytes.NewBufferString(`{"id":1,"method":"tools/list"}`))
			require.NoError(t, err)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
