// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the gateway's router, fan-out client and planner.
package observability

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation name of gateway spans
const TracerName = "mcp-gateway"

// ExporterType selects where spans go
type ExporterType string

const (
	ExporterTypeOTLPGRPC ExporterType = "otlp-grpc"
	ExporterTypeOTLPHTTP ExporterType = "otlp-http"
	// ExporterTypeNoop samples and ends spans but never ships them
	ExporterTypeNoop ExporterType = "noop"
)

// TracingConfig configures NewTracingProvider. Zero values fall back to a
// noop exporter sampling every trace.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	ExporterType ExporterType
	Endpoint     string
	Headers      map[string]string
	Insecure     bool

	// SampleRate is the fraction of root traces kept. Child spans follow
	// their parent's decision.
	SampleRate float64

	// SetGlobal installs the provider and propagator as the otel globals
	SetGlobal bool
}

func (c TracingConfig) withDefaults() TracingConfig {
	if c.ServiceName == "" {
		c.ServiceName = TracerName
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "unknown"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1
	}
	if c.ExporterType == "" {
		c.ExporterType = ExporterTypeNoop
	}
	return c
}

type exporterFactory func(ctx context.Context, c TracingConfig) (sdktrace.SpanExporter, error)

var exporters = map[ExporterType]exporterFactory{
	ExporterTypeOTLPGRPC: func(ctx context.Context, c TracingConfig) (sdktrace.SpanExporter, error) {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.Endpoint), otlptracegrpc.WithHeaders(c.Headers)}
		if c.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(opts...))
	},
	ExporterTypeOTLPHTTP: func(ctx context.Context, c TracingConfig) (sdktrace.SpanExporter, error) {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(c.Endpoint), otlptracehttp.WithHeaders(c.Headers)}
		if c.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	},
	ExporterTypeNoop: func(context.Context, TracingConfig) (sdktrace.SpanExporter, error) {
		return discardExporter{}, nil
	},
}

// TracingProvider starts gateway spans and moves trace context across
// HTTP hops. A nil *TracingProvider is valid and produces non-recording
// spans, so components never check for it.
type TracingProvider struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator

	shutdownOnce sync.Once
	shutdown     func(context.Context) error
}

// NewTracingProvider builds an SDK tracer provider from config
func NewTracingProvider(config TracingConfig) (*TracingProvider, error) {
	config = config.withDefaults()

	factory, ok := exporters[config.ExporterType]
	if !ok {
		return nil, fmt.Errorf("unsupported exporter type: %s", config.ExporterType)
	}
	exporter, err := factory(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", config.ExporterType, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironment(config.Environment),
		)),
		sdktrace.WithSampler(sampler(config.SampleRate)),
	)
	return newProvider(tp, tp.Shutdown, config.SetGlobal), nil
}

// NewTracingProviderFrom wraps an existing tracer provider. Tests use it
// with an in-memory exporter.
func NewTracingProviderFrom(tp trace.TracerProvider) *TracingProvider {
	return newProvider(tp, nil, false)
}

func newProvider(tp trace.TracerProvider, shutdown func(context.Context) error, global bool) *TracingProvider {
	propagator := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	if global {
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagator)
	}
	return &TracingProvider{
		tracer:     tp.Tracer(TracerName),
		propagator: propagator,
		shutdown:   shutdown,
	}
}

func sampler(rate float64) sdktrace.Sampler {
	if rate >= 1 {
		return sdktrace.AlwaysSample()
	}
	if rate <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

var noopTracer = noop.NewTracerProvider().Tracer(TracerName)

func (tp *TracingProvider) start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if tp == nil {
		return noopTracer.Start(ctx, name)
	}
	return tp.tracer.Start(ctx, name, opts...)
}

// StartSpan starts an internal span such as "planner.step"
func (tp *TracingProvider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tp.start(ctx, name, trace.WithAttributes(attrs...))
}

// StartMethodSpan starts a span named "mcp.<method>" for a JSON-RPC method
func (tp *TracingProvider) StartMethodSpan(ctx context.Context, method string, kind trace.SpanKind) (context.Context, trace.Span) {
	return tp.start(ctx, "mcp."+method,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attribute.String("mcp.method", method)),
	)
}

// RecordError marks the span in ctx failed with err
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (tp *TracingProvider) Extract(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	if tp == nil {
		return ctx
	}
	return tp.propagator.Extract(ctx, carrier)
}

func (tp *TracingProvider) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	if tp != nil {
		tp.propagator.Inject(ctx, carrier)
	}
}

// Shutdown flushes pending spans. Only the first call does anything.
func (tp *TracingProvider) Shutdown(ctx context.Context) error {
	if tp == nil {
		return nil
	}
	var err error
	tp.shutdownOnce.Do(func() {
		if tp.shutdown != nil {
			err = tp.shutdown(ctx)
		}
	})
	return err
}

type discardExporter struct{}

func (discardExporter) ExportSpans(context.Context, []sdktrace.ReadOnlySpan) error { return nil }
func (discardExporter) Shutdown(context.Context) error                             { return nil }
