package main

import (
	"context"
	"time"

	mcp "github.com/ajitpratap0/mcp-gateway"
	"github.com/ajitpratap0/mcp-gateway/pkg/diagnostics"
	"github.com/ajitpratap0/mcp-gateway/pkg/logging"
	"github.com/ajitpratap0/mcp-gateway/pkg/observability"
	"github.com/ajitpratap0/mcp-gateway/pkg/transport"
)

const shutdownTimeout = 10 * time.Second

// services holds the ambient services shared by the commands
type services struct {
	metrics observability.Metrics
	tracer  *observability.TracingProvider
	sink    diagnostics.Sink

	closers []func() error
}

func newServices() (*services, error) {
	svc := &services{}

	if conf.Metrics.Enabled {
		svc.metrics = observability.NewPrometheusMetrics(observability.MetricsConfig{
			Namespace:      conf.Metrics.Namespace,
			IncludeRuntime: true,
		})
	}

	tp, err := observability.NewTracingProvider(conf.Tracing.Provider(mcp.Version))
	if err != nil {
		return nil, err
	}
	svc.tracer = tp
	svc.closers = append(svc.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return tp.Shutdown(ctx)
	})

	if conf.Diagnostics.Enabled {
		sink, err := diagnostics.NewSQLiteSink(conf.Diagnostics.Path)
		if err != nil {
			svc.Close()
			return nil, err
		}
		svc.sink = sink
		svc.closers = append(svc.closers, sink.Close)
		logger.Info("recording diagnostics", logging.String("path", conf.Diagnostics.Path))
	}
	return svc, nil
}

// fetcher builds the HTTP fan-out from the client settings
func (svc *services) fetcher() *transport.HTTPFetcher {
	c := conf.Client
	opts := []transport.FetcherOption{
		transport.WithConcurrency(c.Concurrency),
		transport.WithTimeout(c.Timeout),
		transport.WithLogger(logger),
		transport.WithMetrics(svc.metrics),
		transport.WithTracing(svc.tracer),
	}
	for k, v := range c.Headers {
		opts = append(opts, transport.WithHeader(k, v))
	}
	if c.Retry.MaxRetries > 0 {
		opts = append(opts, transport.WithRetry(c.Retry))
	}
	if c.CircuitBreaker.Enabled {
		opts = append(opts, transport.WithCircuitBreaker(c.CircuitBreaker))
	}
	return transport.NewHTTPFetcher(opts...)
}

// recorder creates a diagnostics recorder flushing into the configured sink
func (svc *services) recorder() *diagnostics.Recorder {
	return diagnostics.NewRecorder(svc.sink, diagnostics.WithPayloadLimit(conf.Diagnostics.MaxPayload))
}

// Close releases everything in reverse order of creation
func (svc *services) Close() {
	for i := len(svc.closers) - 1; i >= 0; i-- {
		if err := svc.closers[i](); err != nil {
			logger.Warn("failed to release resource", logging.ErrorField(err))
		}
	}
	svc.closers = nil
}
