package tracecore

import (
	"context"
	"sync"
	"sync/atomic"
)

// Process-wide state. Each piece is created exactly once, no matter how
// many initializers race at startup; all mutation goes through the narrow
// operation sets below, never through direct storage access.

var (
	activeSpansOnce sync.Once
	activeSpans     *SpanRegistry

	globalTracerOnce sync.Once
	globalTracer     *Tracer

	globalTracers     atomic.Pointer[TracerRegistry]
	globalPropagators = NewPropagatorRegistry()
)

// ActiveSpans returns the process-wide span registry, creating it on
// first use. Repeated and concurrent calls observe the same instance.
func ActiveSpans() *SpanRegistry {
	activeSpansOnce.Do(func() {
		activeSpans = NewSpanRegistry()
	})
	return activeSpans
}

// DefaultTracer returns the process-wide tracer backed by ActiveSpans.
func DefaultTracer() *Tracer {
	globalTracerOnce.Do(func() {
		globalTracer = New()
	})
	return globalTracer
}

// Tracers returns the process-wide tracer registry.
func Tracers() *TracerRegistry {
	if r := globalTracers.Load(); r != nil {
		return r
	}
	// First caller wins; losers adopt the stored registry.
	globalTracers.CompareAndSwap(nil, NewTracerRegistry())
	return globalTracers.Load()
}

// Propagators returns the process-wide propagator registry.
func Propagators() *PropagatorRegistry {
	return globalPropagators
}

// StartSpan starts a span on the process-wide tracer.
func StartSpan(ctx context.Context, name Key, opts ...StartOption) (context.Context, SpanContext) {
	return DefaultTracer().StartSpan(ctx, name, opts...)
}

// FinishSpan finishes a span on the process-wide tracer.
func FinishSpan(sc SpanContext, opts ...FinishOption) {
	DefaultTracer().FinishSpan(sc, opts...)
}

// RegisterDefaultTracer installs h as the process-wide default tracer
// handle. Returns false when the implementation is not resolvable.
func RegisterDefaultTracer(h TracerHandle) bool {
	return Tracers().RegisterDefault(h)
}

// RegisterNamedTracer installs h under name.
func RegisterNamedTracer(name string, h TracerHandle) bool {
	return Tracers().RegisterNamed(name, h)
}

// RegisterTracersForApplication maps every module of the application to
// h in one batch.
func RegisterTracersForApplication(appID string, modules []string, h TracerHandle) {
	Tracers().RegisterModules(appID, modules, h)
}

// GetDefaultTracer resolves the default tracer handle (no-op fallback).
func GetDefaultTracer() TracerHandle {
	return Tracers().Default()
}

// GetNamedTracer resolves a named tracer handle, falling back through
// default to no-op.
func GetNamedTracer(name string) TracerHandle {
	return Tracers().Named(name)
}

// GetTracerForModule resolves the tracer handle for a module (import
// path), falling back through default to no-op.
func GetTracerForModule(module string) TracerHandle {
	return Tracers().ForModule(module)
}

// SetInjector configures the process-wide injector.
func SetInjector(in Injector) {
	globalPropagators.SetInjector(in)
}

// SetExtractor configures the process-wide extractor.
func SetExtractor(ex Extractor) {
	globalPropagators.SetExtractor(ex)
}

// SetPropagator configures both propagation directions at once.
func SetPropagator(p Propagator) {
	globalPropagators.SetPropagator(p)
}

// GetInjector returns the process-wide injector (no-op fallback).
func GetInjector() Injector {
	return globalPropagators.GetInjector()
}

// GetExtractor returns the process-wide extractor (no-op fallback).
func GetExtractor() Extractor {
	return globalPropagators.GetExtractor()
}
