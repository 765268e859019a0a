package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Span names shared across the runtime's instrumented packages.
const (
	SpanAgentTurn = "agent.turn"
	SpanLLMCall   = "llm.call"
	SpanToolCall  = "tool.call"
	SpanMemoryOp  = "memory.op"
)

// TracingConfig controls whether spans are recorded at all and, if so,
// under what service name they're reported.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
}

// InitTracer installs a TracerProvider as the global otel provider and
// returns a shutdown func to flush and release it. When cfg.Enabled is
// false it installs a no-op provider: every otel.Tracer(...).Start call
// already scattered through the runtime becomes a zero-cost no-op,
// rather than requiring every call site to branch on whether tracing is
// on. When enabled, spans are exported to an in-memory DebugExporter —
// there is no OTLP collector dependency wired into this module, so
// traces are available for local inspection and tests, not shipped to a
// remote backend.
func InitTracer(cfg TracingConfig) (shutdown func(context.Context) error, exporter *DebugExporter) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return func(context.Context) error { return nil }, nil
	}

	exporter = NewDebugExporter()
	res := resource.NewSchemaless(semconv.ServiceName(cfg.ServiceName))

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(exporter)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, exporter
}

// DebugExporter is an in-memory sdktrace.SpanExporter that retains the
// most recent spans for local inspection (e.g. a `locus trace` command
// or test assertions), bounded by maxSize so a long-running session
// never grows this unbounded.
type DebugExporter struct {
	mu      sync.RWMutex
	spans   []*DebugSpan
	maxSize int
}

// DebugSpan is the captured shape of a single recorded span.
type DebugSpan struct {
	TraceID    string
	SpanID     string
	Name       string
	DurationMs float64
	Attributes map[string]string
	Status     string
}

// NewDebugExporter builds a DebugExporter retaining the most recent 1000
// spans.
func NewDebugExporter() *DebugExporter {
	return &DebugExporter{maxSize: 1000}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *DebugExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, span := range spans {
		start := span.StartTime()
		end := span.EndTime()

		attrs := make(map[string]string, len(span.Attributes()))
		for _, attr := range span.Attributes() {
			attrs[string(attr.Key)] = attr.Value.AsString()
		}

		e.spans = append(e.spans, &DebugSpan{
			TraceID:    span.SpanContext().TraceID().String(),
			SpanID:     span.SpanContext().SpanID().String(),
			Name:       span.Name(),
			DurationMs: float64(end.Sub(start).Microseconds()) / 1000,
			Attributes: attrs,
			Status:     span.Status().Code.String(),
		})
	}

	if overflow := len(e.spans) - e.maxSize; overflow > 0 {
		e.spans = e.spans[overflow:]
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *DebugExporter) Shutdown(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.spans = nil
	return nil
}

// Spans returns a snapshot of the captured spans, most recent last.
func (e *DebugExporter) Spans() []*DebugSpan {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*DebugSpan, len(e.spans))
	copy(out, e.spans)
	return out
}

var _ sdktrace.SpanExporter = (*DebugExporter)(nil)
var _ trace.TracerProvider = noop.NewTracerProvider()
