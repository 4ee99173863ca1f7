package tracecore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// TracerImpl is the capability interface dispatched through resolved
// tracer handles. *Tracer implements it; so does the built-in no-op.
type TracerImpl interface {
	StartSpan(ctx context.Context, name Key, opts ...StartOption) (context.Context, SpanContext)
	FinishSpan(sc SpanContext, opts ...FinishOption)
	IsRecording(sc SpanContext) bool
}

// TracerHandle pairs a tracer implementation with opaque configuration
// state. Handles are immutable once stored; registry entries are replaced
// wholesale, never mutated in place.
type TracerHandle struct {
	Impl   TracerImpl
	Config any
}

// ImplChecker reports whether a handle's implementation reference is
// resolvable. Registration installs a handle only when its checker
// approves it; otherwise the previous mapping is retained.
type ImplChecker func(TracerImpl) bool

func defaultImplChecker(impl TracerImpl) bool {
	return impl != nil
}

// tracerSnapshot is the immutable state published to readers. Lookups
// load the current snapshot lock-free; writers copy, modify and swap.
type tracerSnapshot struct {
	named   map[string]TracerHandle
	modules map[string]TracerHandle
	def     TracerHandle
	hasDef  bool
}

// TracerRegistry resolves logical names to tracer handles. Lookups sit on
// the hot path of every instrumented call site and never block, never
// fail: resolution falls back along module -> name -> default -> no-op.
// Registration is expected to be rare (startup/app-load time).
//
// Safe for concurrent use by multiple goroutines.
type TracerRegistry struct {
	snapshot atomic.Pointer[tracerSnapshot]
	check    ImplChecker
	log      zerolog.Logger
	mu       sync.Mutex // serializes writers
}

// RegistryOption configures a TracerRegistry.
type RegistryOption func(*TracerRegistry)

// WithRegistryLogger sets the logger for registration warnings.
func WithRegistryLogger(log zerolog.Logger) RegistryOption {
	return func(r *TracerRegistry) { r.log = log }
}

// WithImplChecker replaces the default non-nil implementation check.
func WithImplChecker(check ImplChecker) RegistryOption {
	return func(r *TracerRegistry) { r.check = check }
}

// NewTracerRegistry creates an empty registry. All lookups on an empty
// registry resolve to the built-in no-op handle.
func NewTracerRegistry(opts ...RegistryOption) *TracerRegistry {
	r := &TracerRegistry{
		check: defaultImplChecker,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.snapshot.Store(&tracerSnapshot{
		named:   map[string]TracerHandle{},
		modules: map[string]TracerHandle{},
	})
	return r
}

// RegisterDefault installs h as the default tracer. Returns false - and
// keeps the previous default - when the handle's implementation is not
// resolvable. Never panics or errors; a rejected registration is a
// warning, not a failure of the caller.
func (r *TracerRegistry) RegisterDefault(h TracerHandle) bool {
	if !r.check(h.Impl) {
		r.log.Warn().Msg("default tracer not registered: implementation not resolvable")
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.snapshot.Load().clone()
	next.def = h
	next.hasDef = true
	r.snapshot.Store(next)
	return true
}

// RegisterNamed installs h under name, with the same soft-fail semantics
// as RegisterDefault.
func (r *TracerRegistry) RegisterNamed(name string, h TracerHandle) bool {
	if !r.check(h.Impl) {
		r.log.Warn().Str("tracer", name).Msg("named tracer not registered: implementation not resolvable")
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.snapshot.Load().clone()
	next.named[name] = h
	r.snapshot.Store(next)
	return true
}

// RegisterModules maps every module in modules to h, merged into the
// module-scope map. appID identifies the logical application unit the
// modules belong to and appears in the rejection warning. A rejected
// handle for one application never rolls back entries merged for others.
func (r *TracerRegistry) RegisterModules(appID string, modules []string, h TracerHandle) {
	if !r.check(h.Impl) {
		r.log.Warn().Str("application", appID).Msg("module tracers not registered: implementation not resolvable")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.snapshot.Load().clone()
	for _, mod := range modules {
		next.modules[mod] = h
	}
	r.snapshot.Store(next)
}

// Default returns the default handle, or the built-in no-op handle if
// none is registered.
func (r *TracerRegistry) Default() TracerHandle {
	snap := r.snapshot.Load()
	if snap.hasDef {
		return snap.def
	}
	return NoopTracerHandle()
}

// Named returns the handle registered under name, falling back to
// Default.
func (r *TracerRegistry) Named(name string) TracerHandle {
	snap := r.snapshot.Load()
	if h, ok := snap.named[name]; ok {
		return h
	}
	if snap.hasDef {
		return snap.def
	}
	return NoopTracerHandle()
}

// ForModule returns the handle registered for the module (import path),
// falling back to Default.
func (r *TracerRegistry) ForModule(module string) TracerHandle {
	snap := r.snapshot.Load()
	if h, ok := snap.modules[module]; ok {
		return h
	}
	if snap.hasDef {
		return snap.def
	}
	return NoopTracerHandle()
}

func (s *tracerSnapshot) clone() *tracerSnapshot {
	next := &tracerSnapshot{
		named:   make(map[string]TracerHandle, len(s.named)),
		modules: make(map[string]TracerHandle, len(s.modules)),
		def:     s.def,
		hasDef:  s.hasDef,
	}
	for k, v := range s.named {
		next.named[k] = v
	}
	for k, v := range s.modules {
		next.modules[k] = v
	}
	return next
}
