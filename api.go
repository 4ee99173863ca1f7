// Package tracecore is the in-process runtime core of a distributed-tracing
// instrumentation library.
//
// tracecore tracks spans from creation to completion and resolves which
// tracer implementation a given call site should use. It deliberately stops
// short of batching, sampling policy, and wire encoding - those belong to
// downstream exporters.
//
// Core Components:.
//   - SpanRegistry: Concurrent store of in-flight spans keyed by span id.
//   - Tracer: Manages the span lifecycle (start, finish, exporter handoff).
//   - TracerRegistry: Process-wide name/module -> tracer resolution.
//   - PropagatorRegistry: Current inject/extract implementations.
//   - Collector: Buffers finished spans for export.
//
// Basic Usage:.
//
//	tracer := tracecore.New()
//	defer tracer.Close()
//
//	// Start a new span.
//	ctx, sc := tracer.StartSpan(ctx, "operation-name")
//	defer tracer.FinishSpan(sc)
//
//	// Pass context to child operations.
//	childCtx, childSC := tracer.StartSpan(ctx, "child-operation")
//	defer tracer.FinishSpan(childSC)
//
// Thread Safety:.
//
// Every exported type in this package is safe for concurrent use by
// multiple goroutines. Operations on distinct span ids never block each
// other; registry lookups are lock-free snapshot reads.
//
// Context Propagation:.
//
// Span contexts are linked via context.Context. Child spans inherit their
// parent's TraceID and reference the parent's SpanID.
//
// Resource Management:.
//
// A span that is started but never finished stays resident in the
// SpanRegistry for the life of the process. The registry never evicts -
// evicting would corrupt legitimately long-running traces - but it exposes
// the resident count (SpanRegistry.Len, plus an optional prometheus gauge)
// so leaks can be monitored externally.
//
// Call tracer.Close() to shut down background goroutines.
package tracecore

// Key represents a span operation name.
type Key = string

// Attributes carry auxiliary key/value payload on spans, events and links.
// The registry and lifecycle logic never inspect them.
type Attributes = map[string]string
