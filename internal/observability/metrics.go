package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "locus"

// Metrics holds the Prometheus collectors for the agent runtime. Every
// method is safe to call on a nil *Metrics — callers that construct the
// runtime without metrics enabled pass around a nil pointer rather than
// branching at every call site.
type Metrics struct {
	registry *prometheus.Registry

	turnsTotal    *prometheus.CounterVec
	turnDuration  *prometheus.HistogramVec
	toolCalls     *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	tokensTotal   *prometheus.CounterVec
	memoryOps     *prometheus.CounterVec
	activeSession prometheus.Gauge
}

// NewMetrics builds and registers the full collector set against a
// fresh registry. Pass the result to the runtime; pass nil when metrics
// are disabled.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "turns_total",
			Help:      "Total number of agent turns completed, labeled by outcome.",
		}, []string{"outcome"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "agent",
			Name:      "turn_duration_seconds",
			Help:      "Wall-clock duration of a single agent turn.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Total number of tool invocations, labeled by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tool",
			Name:      "call_duration_seconds",
			Help:      "Duration of a single tool invocation, labeled by tool name.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"tool"}),
		tokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total tokens consumed, labeled by provider and kind (prompt|completion).",
		}, []string{"provider", "kind"}),
		memoryOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "operations_total",
			Help:      "Total memory-layer operations, labeled by operation and outcome.",
		}, []string{"operation", "outcome"}),
		activeSession: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "1 while a session is actively processing a turn, 0 otherwise.",
		}),
	}

	registry.MustRegister(
		m.turnsTotal,
		m.turnDuration,
		m.toolCalls,
		m.toolDuration,
		m.tokensTotal,
		m.memoryOps,
		m.activeSession,
	)
	return m
}

// Registry exposes the underlying Prometheus registry, e.g. for tests
// that want to scrape collectors directly.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an http.Handler serving this registry's collectors in
// the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordTurn records the outcome and duration of a completed agent turn.
func (m *Metrics) RecordTurn(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	m.turnDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordToolCall records a single tool invocation.
func (m *Metrics) RecordToolCall(tool, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordTokens adds prompt/completion token counts for a provider.
func (m *Metrics) RecordTokens(provider string, promptTokens, completionTokens int) {
	if m == nil {
		return
	}
	if promptTokens > 0 {
		m.tokensTotal.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.tokensTotal.WithLabelValues(provider, "completion").Add(float64(completionTokens))
	}
}

// RecordMemoryOp records a memory-layer operation (store_event,
// retrieve_memories, generate_insight, ...) and its outcome (ok,
// degraded, dropped, error).
func (m *Metrics) RecordMemoryOp(operation, outcome string) {
	if m == nil {
		return
	}
	m.memoryOps.WithLabelValues(operation, outcome).Inc()
}

// SetSessionActive reports whether a session is currently processing a
// turn, for dashboards tracking concurrency.
func (m *Metrics) SetSessionActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.activeSession.Set(1)
	} else {
		m.activeSession.Set(0)
	}
}
