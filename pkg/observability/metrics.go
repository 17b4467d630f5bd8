package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the recorders
const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeNoReply = "no_reply"
	OutcomeStop    = "stop"
)

// MetricsConfig configures the metrics provider
type MetricsConfig struct {
	// Prometheus namespace (default: mcp)
	Namespace string
	// Prometheus subsystem (default: gateway)
	Subsystem string
	// Custom histogram buckets for latency, in milliseconds
	HistogramBuckets []float64
	// Labels to add to all metrics
	ConstLabels prometheus.Labels
	// IncludeRuntime adds the Go and process collectors
	IncludeRuntime bool
}

// Metrics records gateway activity. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// RecordRequest records one dispatched JSON-RPC request
	RecordRequest(method, outcome string, duration time.Duration)
	// RecordBatch records one HTTP body, single or batched
	RecordBatch(size int, duration time.Duration)
	// RecordLockWait records how long a request waited for the server lock
	RecordLockWait(duration time.Duration, acquired bool)
	// RecordFetch records one upstream HTTP call made by the client
	RecordFetch(method string, status int, duration time.Duration)
	// RecordPlanStep records one executed plan step
	RecordPlanStep(function, outcome string, duration time.Duration)
	// Handler exposes the metrics for scraping
	Handler() http.Handler
}

// PrometheusMetrics implements Metrics on a private Prometheus registry
type PrometheusMetrics struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	batchDuration   prometheus.Histogram
	batchSize       prometheus.Histogram
	lockWait        *prometheus.HistogramVec
	fetchDuration   *prometheus.HistogramVec
	fetchTotal      *prometheus.CounterVec
	planStepTotal   *prometheus.CounterVec
	planStepLatency *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a metrics provider with its own registry
func NewPrometheusMetrics(config MetricsConfig) *PrometheusMetrics {
	if config.Namespace == "" {
		config.Namespace = "mcp"
	}
	if config.Subsystem == "" {
		config.Subsystem = "gateway"
	}
	if len(config.HistogramBuckets) == 0 {
		config.HistogramBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
	}

	ns, sub, buckets, labels := config.Namespace, config.Subsystem, config.HistogramBuckets, config.ConstLabels
	m := &PrometheusMetrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "request_duration_ms",
			Help:    "Duration of dispatched JSON-RPC requests in milliseconds",
			Buckets: buckets, ConstLabels: labels,
		}, []string{"method", "outcome"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "requests_total",
			Help:        "Total number of dispatched JSON-RPC requests",
			ConstLabels: labels,
		}, []string{"method", "outcome"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "body_duration_ms",
			Help:    "Duration of whole request bodies in milliseconds",
			Buckets: buckets, ConstLabels: labels,
		}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "body_size",
			Help:    "Number of requests per body",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100}, ConstLabels: labels,
		}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "lock_wait_ms",
			Help:    "Time spent waiting for the server lock in milliseconds",
			Buckets: buckets, ConstLabels: labels,
		}, []string{"acquired"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "client", Name: "fetch_duration_ms",
			Help:    "Duration of upstream MCP calls in milliseconds",
			Buckets: buckets, ConstLabels: labels,
		}, []string{"method"}),
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "client", Name: "fetches_total",
			Help:        "Total number of upstream MCP calls by HTTP status",
			ConstLabels: labels,
		}, []string{"method", "status"}),
		planStepTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: "planner", Name: "steps_total",
			Help:        "Total number of executed plan steps",
			ConstLabels: labels,
		}, []string{"function", "outcome"}),
		planStepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "planner", Name: "step_duration_ms",
			Help:    "Duration of plan steps in milliseconds",
			Buckets: buckets, ConstLabels: labels,
		}, []string{"function"}),
	}

	m.registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.batchDuration, m.batchSize, m.lockWait,
		m.fetchDuration, m.fetchTotal,
		m.planStepTotal, m.planStepLatency,
	)
	if config.IncludeRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the underlying registry
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PrometheusMetrics) RecordRequest(method, outcome string, duration time.Duration) {
	m.requestDuration.WithLabelValues(method, outcome).Observe(ms(duration))
	m.requestTotal.WithLabelValues(method, outcome).Inc()
}

func (m *PrometheusMetrics) RecordBatch(size int, duration time.Duration) {
	m.batchDuration.Observe(ms(duration))
	m.batchSize.Observe(float64(size))
}

func (m *PrometheusMetrics) RecordLockWait(duration time.Duration, acquired bool) {
	m.lockWait.WithLabelValues(strconv.FormatBool(acquired)).Observe(ms(duration))
}

func (m *PrometheusMetrics) RecordFetch(method string, status int, duration time.Duration) {
	m.fetchDuration.WithLabelValues(method).Observe(ms(duration))
	m.fetchTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

func (m *PrometheusMetrics) RecordPlanStep(function, outcome string, duration time.Duration) {
	m.planStepLatency.WithLabelValues(function).Observe(ms(duration))
	m.planStepTotal.WithLabelValues(function, outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// NopMetrics discards everything
type NopMetrics struct{}

func (NopMetrics) RecordRequest(string, string, time.Duration)  {}
func (NopMetrics) RecordBatch(int, time.Duration)               {}
func (NopMetrics) RecordLockWait(time.Duration, bool)           {}
func (NopMetrics) RecordFetch(string, int, time.Duration)       {}
func (NopMetrics) RecordPlanStep(string, string, time.Duration) {}
func (NopMetrics) Handler() http.Handler                        { return http.NotFoundHandler() }

// OrNop returns m, or NopMetrics when m is nil
func OrNop(m Metrics) Metrics {
	if m == nil {
		return NopMetrics{}
	}
	return m
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
