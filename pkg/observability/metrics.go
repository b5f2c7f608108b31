// Package observability provides metrics and tracing for the capability
// host: Prometheus counters/histograms for session and capability
// activity, and OpenTelemetry spans around capability calls.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the metrics provider
type MetricsConfig struct {
	// Service identification
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Prometheus configuration
	MetricsPath string // HTTP path for metrics endpoint (default: /metrics)
	MetricsPort int    // Port for metrics server (default: 9090)

	// Metric options
	Namespace        string    // Prometheus namespace (default: mcphost)
	HistogramBuckets []float64 // Custom histogram buckets for latency

	// Labels to add to all metrics
	ConstLabels prometheus.Labels
}

// MetricsProvider records host activity metrics
type MetricsProvider interface {
	// Protocol traffic
	RecordRequest(ctx context.Context, method, status string, duration time.Duration)

	// Capability calls
	RecordToolCall(ctx context.Context, tool, status string, duration time.Duration)
	RecordResourceRead(ctx context.Context, resource, status string, duration time.Duration)
	RecordPromptRender(ctx context.Context, prompt, status string, duration time.Duration)

	// Session and transport activity
	RecordSessionOpened(ctx context.Context)
	RecordSessionClosed(ctx context.Context)
	RecordMessageRouted(ctx context.Context, status string)
	RecordTransportEvent(ctx context.Context, transport, event string)

	// Management
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// PrometheusMetricsProvider implements MetricsProvider using Prometheus
type PrometheusMetricsProvider struct {
	config   MetricsConfig
	registry *prometheus.Registry
	server   *http.Server

	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	toolDuration     *prometheus.HistogramVec
	resourceDuration *prometheus.HistogramVec
	promptDuration   *prometheus.HistogramVec
	activeSessions   prometheus.Gauge
	sessionsTotal    prometheus.Counter
	messagesRouted   *prometheus.CounterVec
	transportEvents  *prometheus.CounterVec
}

// NewMetricsProvider creates a new Prometheus metrics provider
func NewMetricsProvider(config MetricsConfig) (MetricsProvider, error) {
	if config.Namespace == "" {
		config.Namespace = "mcphost"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.MetricsPort == 0 {
		config.MetricsPort = 9090
	}
	if config.HistogramBuckets == nil {
		// Default buckets in milliseconds
		config.HistogramBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
	}

	if config.ConstLabels == nil {
		config.ConstLabels = prometheus.Labels{}
	}
	if config.ServiceName != "" {
		config.ConstLabels["service"] = config.ServiceName
	}
	if config.ServiceVersion != "" {
		config.ConstLabels["version"] = config.ServiceVersion
	}
	if config.Environment != "" {
		config.ConstLabels["environment"] = config.Environment
	}

	provider := &PrometheusMetricsProvider{
		config:   config,
		registry: prometheus.NewRegistry(),
	}

	provider.initializeMetrics()
	if err := provider.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return provider, nil
}

// initializeMetrics creates all metric collectors
func (p *PrometheusMetricsProvider) initializeMetrics() {
	p.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Name:        "request_duration_milliseconds",
			Help:        "Duration of handled protocol requests in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method", "status"},
	)

	p.requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Name:        "requests_total",
			Help:        "Total number of handled protocol requests",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"method", "status"},
	)

	p.toolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Name:        "tool_call_duration_milliseconds",
			Help:        "Duration of tool calls in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"tool", "status"},
	)

	p.resourceDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Name:        "resource_read_duration_milliseconds",
			Help:        "Duration of resource reads in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"resource", "status"},
	)

	p.promptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Name:        "prompt_render_duration_milliseconds",
			Help:        "Duration of prompt renders in milliseconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"prompt", "status"},
	)

	p.activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Name:        "active_sessions",
			Help:        "Number of currently open stream sessions",
			ConstLabels: p.config.ConstLabels,
		},
	)

	p.sessionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Name:        "sessions_total",
			Help:        "Total number of stream sessions opened",
			ConstLabels: p.config.ConstLabels,
		},
	)

	p.messagesRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Name:        "messages_routed_total",
			Help:        "Total number of messages routed to stream sessions",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"status"},
	)

	p.transportEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Name:        "transport_events_total",
			Help:        "Transport lifecycle events",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"transport", "event"},
	)
}

// registerMetrics registers all collectors with the provider's registry
func (p *PrometheusMetricsProvider) registerMetrics() error {
	collectors := []prometheus.Collector{
		p.requestDuration,
		p.requestTotal,
		p.toolDuration,
		p.resourceDuration,
		p.promptDuration,
		p.activeSessions,
		p.sessionsTotal,
		p.messagesRouted,
		p.transportEvents,
	}

	for _, collector := range collectors {
		if err := p.registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// RecordRequest records a handled protocol request
func (p *PrometheusMetricsProvider) RecordRequest(_ context.Context, method, status string, duration time.Duration) {
	millis := float64(duration.Milliseconds())
	p.requestDuration.WithLabelValues(method, status).Observe(millis)
	p.requestTotal.WithLabelValues(method, status).Inc()
}

// RecordToolCall records a tool invocation
func (p *PrometheusMetricsProvider) RecordToolCall(_ context.Context, tool, status string, duration time.Duration) {
	p.toolDuration.WithLabelValues(tool, status).Observe(float64(duration.Milliseconds()))
}

// RecordResourceRead records a resource read
func (p *PrometheusMetricsProvider) RecordResourceRead(_ context.Context, resource, status string, duration time.Duration) {
	p.resourceDuration.WithLabelValues(resource, status).Observe(float64(duration.Milliseconds()))
}

// RecordPromptRender records a prompt render
func (p *PrometheusMetricsProvider) RecordPromptRender(_ context.Context, prompt, status string, duration time.Duration) {
	p.promptDuration.WithLabelValues(prompt, status).Observe(float64(duration.Milliseconds()))
}

// RecordSessionOpened records a new stream session
func (p *PrometheusMetricsProvider) RecordSessionOpened(_ context.Context) {
	p.activeSessions.Inc()
	p.sessionsTotal.Inc()
}

// RecordSessionClosed records a closed stream session
func (p *PrometheusMetricsProvider) RecordSessionClosed(_ context.Context) {
	p.activeSessions.Dec()
}

// RecordMessageRouted records one routed message
func (p *PrometheusMetricsProvider) RecordMessageRouted(_ context.Context, status string) {
	p.messagesRouted.WithLabelValues(status).Inc()
}

// RecordTransportEvent records a transport lifecycle event
func (p *PrometheusMetricsProvider) RecordTransportEvent(_ context.Context, transport, event string) {
	p.transportEvents.WithLabelValues(transport, event).Inc()
}

// Start brings up the metrics HTTP endpoint
func (p *PrometheusMetricsProvider) Start(_ context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(p.config.MetricsPath, promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))

	p.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", p.config.MetricsPort),
		Handler: mux,
	}

	go func() {
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}

// Shutdown stops the metrics HTTP endpoint
func (p *PrometheusMetricsProvider) Shutdown(ctx context.Context) error {
	if p.server != nil {
		return p.server.Shutdown(ctx)
	}
	return nil
}
