package tracecore

import (
	"context"
	"sync/atomic"
)

// TextMapCarrier is the transport-specific medium trace context is
// injected into and extracted from (e.g. HTTP headers, message metadata).
type TextMapCarrier interface {
	Get(key string) string
	Set(key, value string)
	Keys() []string
}

// Injector writes the trace context from ctx into a carrier.
type Injector interface {
	Inject(ctx context.Context, carrier TextMapCarrier) error
}

// Extractor reads trace context from a carrier and returns a context
// carrying the remote span context. Malformed carriers yield the input
// context unchanged; extraction never fails the caller.
type Extractor interface {
	Extract(ctx context.Context, carrier TextMapCarrier) context.Context
}

// Propagator combines both directions of text-map propagation.
type Propagator interface {
	Injector
	Extractor
}

type injectorSlot struct{ impl Injector }

type extractorSlot struct{ impl Extractor }

// PropagatorRegistry holds the process-wide inject/extract configuration:
// two independent single-value slots. Writes are total overwrites that
// always succeed; reads return the configured implementation or the
// built-in no-op fallback.
//
// Safe for concurrent use by multiple goroutines.
type PropagatorRegistry struct {
	injector  atomic.Pointer[injectorSlot]
	extractor atomic.Pointer[extractorSlot]
}

// NewPropagatorRegistry creates a registry with both slots empty.
func NewPropagatorRegistry() *PropagatorRegistry {
	return &PropagatorRegistry{}
}

// SetInjector replaces the current injector unconditionally.
func (r *PropagatorRegistry) SetInjector(in Injector) {
	r.injector.Store(&injectorSlot{impl: in})
}

// SetExtractor replaces the current extractor unconditionally.
func (r *PropagatorRegistry) SetExtractor(ex Extractor) {
	r.extractor.Store(&extractorSlot{impl: ex})
}

// SetPropagator sets both slots to the same implementation.
func (r *PropagatorRegistry) SetPropagator(p Propagator) {
	r.SetInjector(p)
	r.SetExtractor(p)
}

// GetInjector returns the configured injector or the no-op fallback.
func (r *PropagatorRegistry) GetInjector() Injector {
	if slot := r.injector.Load(); slot != nil && slot.impl != nil {
		return slot.impl
	}
	return noopInjector{}
}

// GetExtractor returns the configured extractor or the no-op fallback.
func (r *PropagatorRegistry) GetExtractor() Extractor {
	if slot := r.extractor.Load(); slot != nil && slot.impl != nil {
		return slot.impl
	}
	return noopExtractor{}
}
