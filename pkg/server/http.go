package server

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	mcperrors "github.com/ajitpratap0/mcp-gateway/pkg/errors"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/observability"
)

// DefaultMaxBodyBytes caps the size of a request body
const DefaultMaxBodyBytes = 10 << 20

// HTTPHandler exposes a Router over HTTP. JSON-RPC bodies are POSTed to
// "/" with the access key in the "accessKey" query parameter.
type HTTPHandler struct {
	router         *Router
	logger         logging.Logger
	metrics        observability.Metrics
	tracer         *observability.TracingProvider
	maxBodyBytes   int64
	mu             sync.RWMutex
	allowedOrigins []string

	handler http.Handler
}

// HTTPOption configures an HTTPHandler
type HTTPOption func(*HTTPHandler)

// WithHTTPLogger logs every request
func WithHTTPLogger(logger logging.Logger) HTTPOption {
	return func(h *HTTPHandler) {
		h.logger = logging.OrNop(logger)
	}
}

// WithHTTPMetrics serves m on /metrics
func WithHTTPMetrics(m observability.Metrics) HTTPOption {
	return func(h *HTTPHandler) {
		h.metrics = m
	}
}

// WithHTTPTracing starts a server span per request
func WithHTTPTracing(tp *observability.TracingProvider) HTTPOption {
	return func(h *HTTPHandler) {
		h.tracer = tp
	}
}

// WithMaxBodyBytes caps the request body size
func WithMaxBodyBytes(n int64) HTTPOption {
	return func(h *HTTPHandler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithAllowedOrigins rejects browser requests whose Origin is not listed.
// Requests without an Origin header are always accepted.
func WithAllowedOrigins(origins ...string) HTTPOption {
	return func(h *HTTPHandler) {
		h.allowedOrigins = origins
	}
}

// NewHTTPHandler creates an HTTP handler for router
func NewHTTPHandler(router *Router, opts ...HTTPOption) *HTTPHandler {
	h := &HTTPHandler{
		router:       router,
		logger:       logging.NewNop(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)
	if h.metrics != nil {
		mux.Handle("/metrics", h.metrics.Handler())
	}
	mux.HandleFunc("/", h.handleRPC)

	h.handler = logging.HTTPMiddleware(h.logger)(observability.HTTPMiddleware(h.tracer)(mux))
	return h
}

// ServeHTTP implements http.Handler
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// SetAllowedOrigins replaces the allowed origins
func (h *HTTPHandler) SetAllowedOrigins(origins []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.allowedOrigins = origins
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (h *HTTPHandler) handleRPC(w http.ResponseWriter, r *http.Request) {
	if !h.isOriginAllowed(r.Header.Get("Origin")) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}

	out, err := h.router.Handle(r.Context(), body, r.URL.Query().Get("accessKey"))
	if err != nil {
		if mcperrors.IsLockTimeout(err) {
			http.Error(w, mcperrors.MsgTimeout, http.StatusServiceUnavailable)
			return
		}
		h.logger.WithError(err).Error("request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if out == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

// isOriginAllowed accepts requests without an Origin and, when no origins
// are configured, every origin.
func (h *HTTPHandler) isOriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	h.mu.RLock()
	origins := h.allowedOrigins
	h.mu.RUnlock()

	if len(origins) == 0 {
		return true
	}
	for _, allowed := range origins {
		if allowed == "*" || matchOrigin(allowed, origin) {
			return true
		}
	}
	return false
}

// matchOrigin matches exactly, or any port of a localhost pattern
func matchOrigin(allowed, origin string) bool {
	if allowed == origin {
		return true
	}
	return isLocalhostPattern(allowed) && strings.HasPrefix(origin, allowed+":")
}

func isLocalhostPattern(allowed string) bool {
	switch allowed {
	case "http://localhost", "https://localhost",
		"http://127.0.0.1", "https://127.0.0.1",
		"http://[::1]", "https://[::1]":
		return true
	}
	return false
}
