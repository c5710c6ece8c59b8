package observability

import (
	"context"
	"errors"
	"testing"
)

func TestTracerRecordsSpan(t *testing.T) {
	tr := NewTracer(TracerConfig{Enabled: true, MaxSpans: 4})
	span := tr.StartSpan(context.Background(), "handle_message", map[string]string{"kind": "Heartbeat"})
	tr.EndSpan(span, nil)

	if tr.SpanCount() != 1 {
		t.Fatalf("SpanCount() = %d, want 1", tr.SpanCount())
	}
	spans := tr.Spans(1)
	if spans[0].Operation != "handle_message" {
		t.Fatalf("Operation = %q, want handle_message", spans[0].Operation)
	}
	if spans[0].Status != SpanOK {
		t.Fatalf("Status = %v, want SpanOK", spans[0].Status)
	}
}

func TestTracerRecordsErrorStatus(t *testing.T) {
	tr := NewTracer(TracerConfig{Enabled: true, MaxSpans: 4})
	span := tr.StartSpan(context.Background(), "handle_message", nil)
	tr.EndSpan(span, errors.New("boom"))

	spans := tr.Spans(1)
	if spans[0].Status != SpanError {
		t.Fatalf("Status = %v, want SpanError", spans[0].Status)
	}
	if spans[0].Attrs["error"] != "boom" {
		t.Fatalf("Attrs[error] = %q, want boom", spans[0].Attrs["error"])
	}
}

func TestTracerRingBufferEvictsOldest(t *testing.T) {
	tr := NewTracer(TracerConfig{Enabled: true, MaxSpans: 2})
	for i := 0; i < 3; i++ {
		span := tr.StartSpan(context.Background(), "op", nil)
		tr.EndSpan(span, nil)
	}
	if tr.SpanCount() != 2 {
		t.Fatalf("SpanCount() = %d, want 2 (ring buffer capped)", tr.SpanCount())
	}
}

func TestDisabledTracerRecordsNothing(t *testing.T) {
	tr := NewTracer(TracerConfig{Enabled: false, MaxSpans: 4})
	span := tr.StartSpan(context.Background(), "op", nil)
	tr.EndSpan(span, nil)
	if tr.SpanCount() != 0 {
		t.Fatalf("SpanCount() = %d, want 0 for a disabled tracer", tr.SpanCount())
	}
}
