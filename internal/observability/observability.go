// Package observability provides a lightweight span tracer and Prometheus
// metrics for a running Flower, grounded on the teacher's
// internal/infra/observability/observability.go: spans kept in an in-memory
// ring buffer rather than wrapping the full OpenTelemetry SDK, plus
// promauto-registered counters/gauges/histograms for the gossip-specific
// events a pollination.Node and its Flower produce.
package observability

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SpanStatus indicates success/failure of a recorded span.
type SpanStatus int

const (
	SpanOK SpanStatus = iota
	SpanError
)

// Span represents one traced operation (a Flower records one
// "handle_message" span per inbound message it handles), tagged with enough
// attrs to reconstruct what happened without re-deriving it from logs.
type Span struct {
	TraceID   string
	SpanID    string
	Operation string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Status    SpanStatus
	Attrs     map[string]string
}

// TracerConfig configures the tracer.
type TracerConfig struct {
	Enabled  bool
	MaxSpans int
}

// DefaultTracerConfig returns production defaults: enabled, 10k-span ring
// buffer (matches the teacher's default).
func DefaultTracerConfig() TracerConfig {
	return TracerConfig{Enabled: true, MaxSpans: 10_000}
}

// Tracer records spans in a fixed-size ring buffer for later inspection via
// the api package; it does not export anywhere on its own.
type Tracer struct {
	mu       sync.Mutex
	spans    []Span
	maxSpans int
	enabled  bool
}

func NewTracer(cfg TracerConfig) *Tracer {
	if cfg.MaxSpans <= 0 {
		cfg.MaxSpans = DefaultTracerConfig().MaxSpans
	}
	return &Tracer{spans: make([]Span, 0, cfg.MaxSpans), maxSpans: cfg.MaxSpans, enabled: cfg.Enabled}
}

// StartSpan begins a span for operation; the returned Span must be passed to
// EndSpan once the work completes.
func (t *Tracer) StartSpan(ctx context.Context, operation string, attrs map[string]string) *Span {
	if !t.enabled {
		return &Span{Operation: operation}
	}
	return &Span{
		TraceID:   traceIDFromContext(ctx),
		SpanID:    generateID(),
		Operation: operation,
		StartTime: time.Now(),
		Status:    SpanOK,
		Attrs:     attrs,
	}
}

// EndSpan completes a span, recording err (if any) into its attrs and
// pushing it into the ring buffer.
func (t *Tracer) EndSpan(span *Span, err error) {
	if !t.enabled || span == nil {
		return
	}
	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)
	if err != nil {
		span.Status = SpanError
		if span.Attrs == nil {
			span.Attrs = make(map[string]string)
		}
		span.Attrs["error"] = err.Error()
		TraceErrors.Inc()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.spans) >= t.maxSpans {
		t.spans = t.spans[1:]
	}
	t.spans = append(t.spans, *span)
	TracesRecorded.Inc()
}

// Spans returns a copy of the most recent limit spans (all of them if limit
// is <= 0 or larger than what's recorded).
func (t *Tracer) Spans(limit int) []Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	if limit <= 0 || limit > len(t.spans) {
		limit = len(t.spans)
	}
	start := len(t.spans) - limit
	out := make([]Span, limit)
	copy(out, t.spans[start:])
	return out
}

func (t *Tracer) SpanCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.spans)
}

type contextKey string

const traceIDKey contextKey = "florescence-trace-id"

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

func traceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return generateID()
}

var spanCounter atomic.Int64

func generateID() string {
	n := spanCounter.Add(1)
	return fmt.Sprintf("%s-%d", time.Now().Format("20060102150405"), n)
}

// ─── Prometheus metrics ─────────────────────────────────────────────────────

// PeerCount tracks the current number of peers a node's map believes in
// (itself included), keyed by the node's own uuid so a multi-topic process
// reports each Flower separately.
var PeerCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "florescence",
	Subsystem: "node",
	Name:      "peer_count",
	Help:      "Number of peers (including self) in this node's membership map.",
}, []string{"uuid"})

// MessagesHandled tracks every message a node has handled, by kind and
// outcome (ok/error).
var MessagesHandled = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "florescence",
	Subsystem: "node",
	Name:      "messages_handled_total",
	Help:      "Total messages handled by kind and outcome.",
}, []string{"kind", "outcome"})

// RealitySkews counts handled RealitySkew messages by outcome: "lost" when
// this node defected, "retained" otherwise (including when the patch
// applied cleanly). Skews detected while handling other kinds are not
// counted here.
var RealitySkews = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "florescence",
	Subsystem: "node",
	Name:      "reality_skews_total",
	Help:      "Total reality-token mismatches detected, by tie-break outcome.",
}, []string{"outcome"})

// PropagationsGranted/Throttled track Propagate outcomes.
var PropagationsGranted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "florescence",
	Subsystem: "node",
	Name:      "propagations_granted_total",
	Help:      "Total times this node forked its identity for a newcomer.",
})

var PropagationsThrottled = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "florescence",
	Subsystem: "node",
	Name:      "propagations_throttled_total",
	Help:      "Total NewMember requests throttled by the propagation timeout.",
})

// SoulsReaped tracks dead peers reclaimed by ReapSouls.
var SoulsReaped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "florescence",
	Subsystem: "node",
	Name:      "souls_reaped_total",
	Help:      "Total dead peer ids reclaimed via ReapSouls.",
})

// ConnectionCount tracks live connections per Flower.
var ConnectionCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "florescence",
	Subsystem: "flower",
	Name:      "connections",
	Help:      "Number of live connections this Flower currently holds.",
}, []string{"uuid"})

// MessageLatency tracks how long HandleMessage took, by kind.
var MessageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "florescence",
	Subsystem: "node",
	Name:      "message_handle_latency_ms",
	Help:      "HandleMessage latency in milliseconds, by kind.",
	Buckets:   []float64{0.1, 0.5, 1, 5, 10, 25, 50, 100},
}, []string{"kind"})

// TracesRecorded/TraceErrors track Tracer activity itself.
var TracesRecorded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "florescence",
	Subsystem: "traces",
	Name:      "spans_recorded_total",
	Help:      "Total trace spans recorded.",
})

var TraceErrors = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "florescence",
	Subsystem: "traces",
	Name:      "error_spans_total",
	Help:      "Total trace spans with error status.",
})
