package server

import (
	"time"

	"github.com/ajitpratap0/mcp-gateway/pkg/catalog"
	"github.com/ajitpratap0/mcp-gateway/pkg/diagnostics"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/observability"
)

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAccessKey requires every request to carry key as its accessKey.
// An empty key disables the check.
func WithAccessKey(key string) RouterOption {
	return func(r *Router) {
		r.accessKey = key
	}
}

// WithUseLock controls whether every request runs under the server lock.
// Lifecycle methods always do.
func WithUseLock(use bool) RouterOption {
	return func(r *Router) {
		r.useLock = use
	}
}

// WithLockTimeout sets how long a request waits for the server lock
func WithLockTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		if d > 0 {
			r.lockTimeout = d
		}
	}
}

// WithLock shares a lock between routers
func WithLock(l *Lock) RouterOption {
	return func(r *Router) {
		if l != nil {
			r.lock = l
		}
	}
}

// WithTieBreak sets the policy used when catalog items are aggregated
func WithTieBreak(tb catalog.TieBreak) RouterOption {
	return func(r *Router) {
		r.tieBreak = tb
	}
}

// WithSink sets where each request's diagnostic rows are flushed
func WithSink(sink diagnostics.Sink) RouterOption {
	return func(r *Router) {
		r.sink = sink
	}
}

// WithPayloadLimit caps the length of flushed diagnostic payloads
func WithPayloadLimit(n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.payloadLimit = n
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(logger logging.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logging.OrNop(logger)
	}
}

// WithMetrics sets the metrics recorder
func WithMetrics(m observability.Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = observability.OrNop(m)
	}
}

// WithTracing sets the tracing provider
func WithTracing(tp *observability.TracingProvider) RouterOption {
	return func(r *Router) {
		r.tracer = tp
	}
}

// WithClock overrides the time source used for diagnostic dates
func WithClock(now func() time.Time) RouterOption {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}
