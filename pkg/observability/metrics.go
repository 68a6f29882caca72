// Package observability provides flag-gated Prometheus metrics and
// OpenTelemetry tracing for workspace-mcp. Nothing here ever writes to
// stdout; metrics are served on their own localhost listener and spans are
// exported over OTLP.
package observability

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records request and tool-call outcomes. A nil *Metrics is valid
// and records nothing, so callers never need to guard.
type Metrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	toolCallTotal   *prometheus.CounterVec
	toolCallSeconds *prometheus.HistogramVec

	server *http.Server
}

// NewMetrics creates a metrics recorder with its own registry, so parallel
// server instances under test never collide on collector registration.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workspace_mcp",
			Name:      "requests_total",
			Help:      "JSON-RPC requests handled, by method and status.",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workspace_mcp",
			Name:      "request_duration_seconds",
			Help:      "Request handling latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		toolCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workspace_mcp",
			Name:      "tool_calls_total",
			Help:      "Tool invocations, by tool and status.",
		}, []string{"tool", "status"}),
		toolCallSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workspace_mcp",
			Name:      "tool_call_duration_seconds",
			Help:      "Tool invocation latency, including the upstream call.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
	}

	registry.MustRegister(m.requestTotal, m.requestDuration, m.toolCallTotal, m.toolCallSeconds)
	return m
}

// RecordRequest records one handled request.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.requestTotal.WithLabelValues(method, status).Inc()
	m.requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordToolCall records one tool invocation.
func (m *Metrics) RecordToolCall(tool, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.toolCallTotal.WithLabelValues(tool, status).Inc()
	m.toolCallSeconds.WithLabelValues(tool).Observe(duration.Seconds())
}

// Serve exposes /metrics on addr in the background until Shutdown. The
// listener is independent of the protocol stream.
func (m *Metrics) Serve(addr string) error {
	if m == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	m.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// The metrics listener failing is not fatal to serving.
			_ = err
		}
	}()
	return nil
}

// Shutdown stops the metrics listener if one was started.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

// Handler returns the /metrics handler for tests.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
