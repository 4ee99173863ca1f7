package tracecore

import (
	"context"
	"testing"
)

func TestNoopTracerBehavior(t *testing.T) {
	h := NoopTracerHandle()

	ctx, sc := h.Impl.StartSpan(context.Background(), "noop-op")
	if ctx == nil {
		t.Fatal("Expected a usable context")
	}
	if sc.IsValid() {
		t.Error("Expected zero span context from noop tracer")
	}
	if h.Impl.IsRecording(sc) {
		t.Error("Expected noop tracer to never record")
	}

	// Finish drops everything, never panics.
	h.Impl.FinishSpan(sc)
}

func TestNoopTracerPreservesContext(t *testing.T) {
	h := NoopTracerHandle()

	existing := SpanContext{TraceID: testTraceID(1), SpanID: testSpanID(1), Flags: FlagsSampled}
	ctx := ContextWithSpanContext(context.Background(), existing)

	_, sc := h.Impl.StartSpan(ctx, "noop-op")
	if sc != existing {
		t.Error("Expected noop tracer to surface the existing span context")
	}
}

func TestNoopTracerNilContext(t *testing.T) {
	h := NoopTracerHandle()

	ctx, _ := h.Impl.StartSpan(nil, "noop-op") //nolint:staticcheck
	if ctx == nil {
		t.Fatal("Expected a usable context for nil input")
	}
}

func TestNoopExtractorNilContext(t *testing.T) {
	if ctx := (noopExtractor{}).Extract(nil, mapCarrier{}); ctx == nil { //nolint:staticcheck
		t.Fatal("Expected a usable context for nil input")
	}
}

func BenchmarkUnsampledSpan(b *testing.B) {
	tracer := New(WithRegistry(NewSpanRegistry()))
	defer tracer.Close()

	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, sc := tracer.StartSpan(ctx, "bench-op", WithSampled(false))
		tracer.FinishSpan(sc)
	}
}

func BenchmarkSampledRoundTrip(b *testing.B) {
	tracer := New(WithRegistry(NewSpanRegistry()))
	defer tracer.Close()

	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, sc := tracer.StartSpan(ctx, "bench-op")
		tracer.FinishSpan(sc)
	}
}

func BenchmarkRegistryLookupHotPath(b *testing.B) {
	reg := NewTracerRegistry()
	reg.RegisterDefault(NoopTracerHandle())

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = reg.Named("svc")
		}
	})
}
