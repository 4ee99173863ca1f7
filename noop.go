package tracecore

import "context"

// noopTracer is the universal safe fallback: it drops all data handed to
// it and never stores anything. Returned by registry lookups when no real
// tracer is configured.
type noopTracer struct{}

var _ TracerImpl = noopTracer{}

func (noopTracer) StartSpan(ctx context.Context, _ Key, _ ...StartOption) (context.Context, SpanContext) {
	if ctx == nil {
		ctx = context.Background()
	}
	// Preserve whatever context is already there so propagation through
	// uninstrumented layers keeps working.
	return ctx, SpanContextFromContext(ctx)
}

func (noopTracer) FinishSpan(SpanContext, ...FinishOption) {}

func (noopTracer) IsRecording(SpanContext) bool { return false }

// NoopTracerHandle returns the built-in fallback handle.
func NoopTracerHandle() TracerHandle {
	return TracerHandle{Impl: noopTracer{}}
}

// noopExporter drops finished spans.
type noopExporter struct{}

func (noopExporter) ExportSpan(SpanRecord) {}

// noopInjector writes nothing into carriers.
type noopInjector struct{}

func (noopInjector) Inject(context.Context, TextMapCarrier) error { return nil }

// noopExtractor returns the context unchanged.
type noopExtractor struct{}

func (noopExtractor) Extract(ctx context.Context, _ TextMapCarrier) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
