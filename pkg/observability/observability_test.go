package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestPrometheusMetrics(t *testing.T) {
	m := NewPrometheusMetrics(MetricsConfig{})

	m.RecordRequest("tools/call", OutcomeOK, 3*time.Millisecond)
	m.RecordRequest("tools/call", OutcomeOK, 5*time.Millisecond)
	m.RecordRequest("foo/bar", OutcomeNoReply, time.Millisecond)
	m.RecordFetch("tools/list", 200, 10*time.Millisecond)
	m.RecordPlanStep("check_process", OutcomeStop, time.Second)
	m.RecordLockWait(time.Millisecond, true)
	m.RecordBatch(3, 2*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("tools/call", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("foo/bar", OutcomeNoReply)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetchTotal.WithLabelValues("tools/list", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.planStepTotal.WithLabelValues("check_process", OutcomeStop)))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "mcp_gateway_requests_total")
	assert.Contains(t, string(body), "mcp_planner_steps_total")
}

func TestNopMetrics(t *testing.T) {
	m := OrNop(nil)
	m.RecordRequest("x", OutcomeOK, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func newTestTracer() (*TracingProvider, *tracetest.InMemoryExporter) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	return NewTracingProviderFrom(tp), exp
}

func TestNilTracingProvider(t *testing.T) {
	var tp *TracingProvider

	ctx, span := tp.StartMethodSpan(context.Background(), "tools/list", trace.SpanKindServer)
	assert.False(t, span.IsRecording())
	span.End()

	RecordError(ctx, errors.New("ignored"))
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestStartMethodSpan(t *testing.T) {
	tp, exp := newTestTracer()

	ctx, span := tp.StartMethodSpan(context.Background(), "tools/call", trace.SpanKindServer)
	RecordError(ctx, errors.New("boom"))
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "mcp.tools/call", spans[0].Name)
	assert.Equal(t, "boom", spans[0].Status.Description)
}

func TestHTTPMiddlewarePropagates(t *testing.T) {
	tp, exp := newTestTracer()

	var inner trace.SpanContext
	h := HTTPMiddleware(tp)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = trace.SpanContextFromContext(r.Context())
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	// Upstream span whose context travels in the traceparent header
	parentCtx, parent := tp.StartSpan(context.Background(), "client")
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}")).WithContext(parentCtx)
	tp.InjectHTTP(req)
	parent.End()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(context.Background()))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, parent.SpanContext().TraceID(), inner.TraceID())

	spans := exp.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "http POST", spans[1].Name)
}

func TestNoopExporterProvider(t *testing.T) {
	tp, err := NewTracingProvider(TracingConfig{ServiceName: "test"})
	require.NoError(t, err)

	_, span := tp.StartSpan(context.Background(), "op")
	span.End()
	assert.NoError(t, tp.Shutdown(context.Background()))
	assert.NoError(t, tp.Shutdown(context.Background()))

	_, err = NewTracingProvider(TracingConfig{ExporterType: "bogus"})
	assert.Error(t, err)
}
