package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	mcperrors "github.com/ajitpratap0/mcp-gateway/pkg/errors"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/observability"
)

const (
	// DefaultConcurrency is the number of calls HTTPFetcher runs at once
	DefaultConcurrency = 8

	// DefaultTimeout bounds a single call, retries excluded
	DefaultTimeout = 60 * time.Second

	// maxReplyBytes caps how much of a response body is read
	maxReplyBytes = 32 << 20
)

// HTTPFetcher is a Fetcher over net/http
type HTTPFetcher struct {
	client      *http.Client
	concurrency int
	timeout     time.Duration
	header      http.Header
	retry       RetryConfig
	breakerCfg  CircuitBreakerConfig

	logger  logging.Logger
	metrics observability.Metrics
	tracer  *observability.TracingProvider

	mu       sync.Mutex
	breakers map[string]*circuitBreaker
}

// FetcherOption configures an HTTPFetcher
type FetcherOption func(*HTTPFetcher)

// WithHTTPClient sets the client used for every call
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithConcurrency limits how many calls run at once
func WithConcurrency(n int) FetcherOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithTimeout bounds each call attempt
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithHeader adds a header to every call, such as Authorization
func WithHeader(key, value string) FetcherOption {
	return func(f *HTTPFetcher) {
		f.header.Add(key, value)
	}
}

// WithRetry retries retryable failures
func WithRetry(cfg RetryConfig) FetcherOption {
	return func(f *HTTPFetcher) {
		f.retry = cfg.withDefaults()
	}
}

// WithCircuitBreaker enables a circuit breaker per host
func WithCircuitBreaker(cfg CircuitBreakerConfig) FetcherOption {
	return func(f *HTTPFetcher) {
		f.breakerCfg = cfg
	}
}

// WithLogger sets the logger
func WithLogger(l logging.Logger) FetcherOption {
	return func(f *HTTPFetcher) {
		f.logger = logging.OrNop(l)
	}
}

// WithMetrics records every attempt
func WithMetrics(m observability.Metrics) FetcherOption {
	return func(f *HTTPFetcher) {
		f.metrics = observability.OrNop(m)
	}
}

// WithTracing starts a client span per call and propagates it upstream
func WithTracing(tp *observability.TracingProvider) FetcherOption {
	return func(f *HTTPFetcher) {
		f.tracer = tp
	}
}

// NewHTTPFetcher creates a fetcher
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:      &http.Client{},
		concurrency: DefaultConcurrency,
		timeout:     DefaultTimeout,
		header:      make(http.Header),
		logger:      logging.NewNop(),
		metrics:     observability.NopMetrics{},
		breakers:    make(map[string]*circuitBreaker),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.WithFields(logging.String("component", "fetcher"))
	return f
}

// FetchAll runs calls concurrently and waits for all of them
func (f *HTTPFetcher) FetchAll(ctx context.Context, calls []Call) []Reply {
	replies := make([]Reply, len(calls))

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			replies[i] = f.fetch(ctx, call)
			return nil
		})
	}
	_ = g.Wait()
	return replies
}

func (f *HTTPFetcher) fetch(ctx context.Context, call Call) Reply {
	ctx, span := f.tracer.StartSpan(ctx, "transport.fetch",
		attribute.String("mcp.method", call.Label),
		attribute.String("http.host", hostOf(call.URL)),
	)
	defer span.End()

	breaker := f.breakerFor(call.URL)
	attempts := f.retry.MaxRetries + 1

	var reply Reply
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := f.retry.backoff(attempt)
			f.logger.Debug("retrying call",
				logging.String("label", call.Label),
				logging.Int("attempt", attempt),
				logging.Duration("delay", delay))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Reply{URL: call.URL, Err: ctx.Err()}
			}
		}

		if breaker != nil && !breaker.allow() {
			reply = Reply{URL: call.URL, Err: mcperrors.NewError(
				mcperrors.CodeCircuitOpen,
				"Circuit breaker is open",
				mcperrors.CategoryTransport,
				mcperrors.SeverityError,
			).WithContext(&mcperrors.Context{Endpoint: call.URL, Component: "fetcher", Operation: call.Label})}
			break
		}

		start := time.Now()
		reply = f.do(ctx, call)
		f.metrics.RecordFetch(call.Label, reply.StatusCode, time.Since(start))

		err := replyError(call, reply)
		if err == nil {
			if breaker != nil {
				breaker.succeeded()
			}
			return reply
		}
		if breaker != nil {
			breaker.failed()
		}
		if !mcperrors.IsRetryableError(err) {
			break
		}
	}

	if err := replyError(call, reply); err != nil {
		observability.RecordError(ctx, err)
		f.logger.WithError(err).Debug("call failed", logging.String("label", call.Label))
	}
	return reply
}

func (f *HTTPFetcher) do(ctx context.Context, call Call) Reply {
	reply := Reply{URL: call.URL}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	method := call.Method
	if method == "" {
		method = http.MethodPost
	}
	req, err := http.NewRequestWithContext(ctx, method, call.URL, bytes.NewReader(call.Body))
	if err != nil {
		reply.Err = fmt.Errorf("build request: %w", err)
		return reply
	}
	for k, vs := range f.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range call.Header {
		req.Header[k] = append([]string(nil), vs...)
	}
	f.tracer.InjectHTTP(req)

	resp, err := f.client.Do(req)
	if err != nil {
		reply.Err = err
		return reply
	}
	defer resp.Body.Close()

	reply.StatusCode = resp.StatusCode
	reply.Header = resp.Header
	reply.Body, err = io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		reply.Err = fmt.Errorf("read response body: %w", err)
	}
	return reply
}

// replyError classifies a reply. Non-200 statuses are errors here even
// though the Reply itself carries no Go error for them.
func replyError(call Call, reply Reply) error {
	if reply.OK() {
		return nil
	}
	return mcperrors.FetchFailed(call.Label, call.URL, reply.StatusCode, reply.Err)
}

func (f *HTTPFetcher) breakerFor(rawURL string) *circuitBreaker {
	if !f.breakerCfg.Enabled {
		return nil
	}
	host := hostOf(rawURL)

	f.mu.Lock()
	defer f.mu.Unlock()
	cb, ok := f.breakers[host]
	if !ok {
		cb = newCircuitBreaker(f.breakerCfg, func(from, to breakerState) {
			f.logger.Info("circuit breaker state changed",
				logging.String("host", host),
				logging.String("from", string(from)),
				logging.String("to", string(to)))
		})
		f.breakers[host] = cb
	}
	return cb
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}
