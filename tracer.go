package tracecore

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/zoobzio/clockz"
)

// SpanBuilder assembles span records from start options and folds late
// context updates into a taken record at finish time. The default builder
// covers the minimal mutation model; richer implementations can normalize
// attributes or enforce payload limits here.
type SpanBuilder interface {
	// Build returns a populated record for a span that is about to be
	// inserted into the registry.
	Build(sc SpanContext, cfg *StartConfig) *SpanRecord

	// Finalize merges late-arriving context fields (e.g. an updated
	// tracestate) into rec and stamps the end time. The returned record
	// is ready for export.
	Finalize(rec *SpanRecord, sc SpanContext, end time.Time) *SpanRecord
}

// StartConfig is the resolved set of start options.
//
//nolint:govet // Field order follows option declaration order
type StartConfig struct {
	Name       string
	Kind       SpanKind
	Attributes Attributes
	Links      []Link
	StartTime  time.Time
	NewRoot    bool

	sampled    bool
	sampledSet bool
}

// StartOption configures span creation.
type StartOption func(*StartConfig)

// WithKind sets the span kind. Unknown kinds are coerced to internal.
func WithKind(k SpanKind) StartOption {
	return func(c *StartConfig) { c.Kind = ValidateSpanKind(k) }
}

// WithAttributes sets the initial attribute payload.
func WithAttributes(attrs Attributes) StartOption {
	return func(c *StartConfig) { c.Attributes = attrs }
}

// WithLinks attaches links to the new span.
func WithLinks(links ...Link) StartOption {
	return func(c *StartConfig) { c.Links = append(c.Links, links...) }
}

// WithStartTime overrides the clock-provided start time.
func WithStartTime(t time.Time) StartOption {
	return func(c *StartConfig) { c.StartTime = t }
}

// WithNewRoot forces a new root span even when the context carries a
// parent.
func WithNewRoot() StartOption {
	return func(c *StartConfig) { c.NewRoot = true }
}

// WithSampled applies the caller's sampling decision. Without it, child
// spans inherit the parent's sampled flag and root spans are sampled.
func WithSampled(sampled bool) StartOption {
	return func(c *StartConfig) {
		c.sampled = sampled
		c.sampledSet = true
	}
}

// FinishOption configures span completion.
type FinishOption func(*finishConfig)

type finishConfig struct {
	endTime    time.Time
	traceState TraceState
	stateSet   bool
}

// WithEndTime overrides the clock-provided end time.
func WithEndTime(t time.Time) FinishOption {
	return func(c *finishConfig) { c.endTime = t }
}

// WithFinalTraceState merges an updated tracestate into the record before
// export.
func WithFinalTraceState(ts TraceState) FinishOption {
	return func(c *finishConfig) {
		c.traceState = ts
		c.stateSet = true
	}
}

// Tracer manages the span lifecycle: start inserts a record into the span
// registry, finish atomically removes it and hands it to the exporter.
// Safe for concurrent use by multiple goroutines.
//
// Every operation is total: disabled spans, absent records and double
// finishes are all benign no-ops, never errors.
type Tracer struct {
	registry  *SpanRegistry
	ids       IDGenerator
	builder   SpanBuilder
	exporter  Exporter
	metrics   *Metrics
	clock     clockz.Clock
	log       zerolog.Logger
	ownedIDs  *pooledIDGenerator
	sharedReg bool
}

var _ TracerImpl = (*Tracer)(nil)

// Option configures a Tracer.
type Option func(*Tracer)

// WithClock injects a clock, enabling deterministic tests.
func WithClock(clock clockz.Clock) Option {
	return func(t *Tracer) { t.clock = clock }
}

// WithRegistry backs the tracer with an existing span registry instead of
// the process-wide one.
func WithRegistry(r *SpanRegistry) Option {
	return func(t *Tracer) { t.registry = r }
}

// WithExporter sets the finished-span recipient. Handoff is
// fire-and-forget; the tracer never waits on or retries export.
func WithExporter(e Exporter) Option {
	return func(t *Tracer) { t.exporter = e }
}

// WithIDGenerator replaces the default pooled crypto/rand generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Tracer) { t.ids = g }
}

// WithBuilder replaces the default span builder.
func WithBuilder(b SpanBuilder) Option {
	return func(t *Tracer) { t.builder = b }
}

// WithLogger sets the logger used for internal warnings.
func WithLogger(log zerolog.Logger) Option {
	return func(t *Tracer) { t.log = log }
}

// WithMetrics attaches prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(t *Tracer) { t.metrics = m }
}

// New creates a tracer backed by the process-wide span registry.
func New(opts ...Option) *Tracer {
	t := &Tracer{
		builder:  defaultBuilder{},
		exporter: noopExporter{},
		clock:    clockz.RealClock,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.registry == nil {
		t.registry = ActiveSpans()
		t.sharedReg = true
	}
	if t.ids == nil {
		gen := newPooledIDGenerator(t.clock)
		t.ids = gen
		t.ownedIDs = gen
	}
	return t
}

// StartSpan creates a span and returns a context carrying its span
// context. If ctx already carries a span context, the new span is its
// child and inherits the trace ID and sampled flag.
//
// Unsampled spans touch neither the registry nor the exporter: the
// returned span context is still valid for propagation and parenting, but
// FinishSpan on it is a no-op.
func (t *Tracer) StartSpan(ctx context.Context, name Key, opts ...StartOption) (context.Context, SpanContext) {
	// Handle nil context by creating a new one.
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := StartConfig{Name: string(name)}
	for _, opt := range opts {
		opt(&cfg)
	}

	parent := SpanContextFromContext(ctx)
	if cfg.NewRoot {
		parent = SpanContext{}
	}

	sc := SpanContext{SpanID: t.ids.NewSpanID()}
	if parent.IsValid() {
		sc.TraceID = parent.TraceID
		sc.Flags = parent.Flags
		sc.TraceState = parent.TraceState
	} else {
		sc.TraceID = t.ids.NewTraceID()
		sc.Flags = sc.Flags.WithSampled(true)
	}
	if cfg.sampledSet {
		sc.Flags = sc.Flags.WithSampled(cfg.sampled)
	}

	newCtx := ContextWithSpanContext(ctx, sc)

	if !sc.IsSampled() {
		return newCtx, sc
	}

	if cfg.StartTime.IsZero() {
		cfg.StartTime = t.clock.Now()
	}

	rec := t.builder.Build(sc, &cfg)
	if parent.IsValid() {
		rec.ParentID = parent.SpanID
	}

	t.registry.Insert(rec)
	t.metrics.spanStarted()

	return newCtx, sc
}

// FinishSpan completes the span identified by sc: it atomically removes
// the record from the registry, stamps the end time, and forwards the
// record to the exporter. At most one FinishSpan per span ID reaches the
// exporter; finishing an unsampled, unknown or already-finished span is a
// benign no-op.
func (t *Tracer) FinishSpan(sc SpanContext, opts ...FinishOption) {
	if !sc.IsSampled() {
		return
	}

	rec, ok := t.registry.Take(sc.SpanID)
	if !ok {
		// Never started (unsampled or foreign) or already finished.
		return
	}

	var cfg finishConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.endTime.IsZero() {
		cfg.endTime = t.clock.Now()
	}
	if cfg.stateSet {
		sc.TraceState = cfg.traceState
	}

	rec = t.builder.Finalize(rec, sc, cfg.endTime)
	t.metrics.spanFinished()
	t.exporter.ExportSpan(*rec)
}

// SetAttributes is a pass-through: the covered configuration does not
// update stored records through the public surface.
func (t *Tracer) SetAttributes(SpanContext, Attributes) {}

// AddEvent is a pass-through, like SetAttributes.
func (t *Tracer) AddEvent(SpanContext, Event) {}

// AddLinks is a pass-through, like SetAttributes.
func (t *Tracer) AddLinks(SpanContext, ...Link) {}

// SetStatus is a pass-through, like SetAttributes.
func (t *Tracer) SetStatus(SpanContext, Status) {}

// UpdateName is a pass-through, like SetAttributes.
func (t *Tracer) UpdateName(SpanContext, Key) {}

// IsRecording always reports false: records are not incrementally
// mutable through this surface once inserted.
func (t *Tracer) IsRecording(SpanContext) bool { return false }

// Registry exposes the backing span registry for diagnostics.
func (t *Tracer) Registry() *SpanRegistry {
	return t.registry
}

// Close shuts down tracer-owned resources (the default ID generator's
// refill goroutines). Spans still resident in the registry are untouched.
func (t *Tracer) Close() {
	if t.ownedIDs != nil {
		t.ownedIDs.Close()
	}
	// The process-wide registry is shared with other tracers; its
	// resident count says nothing about this tracer's spans.
	if resident := t.registry.Len(); !t.sharedReg && resident > 0 {
		t.log.Warn().Int("resident_spans", resident).Msg("tracer closed with unfinished spans")
	}
}

// defaultBuilder is the minimal SpanBuilder: it copies start options into
// the record verbatim and computes the duration at finish.
type defaultBuilder struct{}

func (defaultBuilder) Build(sc SpanContext, cfg *StartConfig) *SpanRecord {
	return &SpanRecord{
		Name:       cfg.Name,
		Kind:       ValidateSpanKind(cfg.Kind),
		TraceID:    sc.TraceID,
		SpanID:     sc.SpanID,
		Flags:      sc.Flags,
		TraceState: sc.TraceState,
		StartTime:  cfg.StartTime,
		Attributes: cfg.Attributes,
		Links:      cfg.Links,
	}
}

func (defaultBuilder) Finalize(rec *SpanRecord, sc SpanContext, end time.Time) *SpanRecord {
	rec.TraceState = sc.TraceState
	rec.EndTime = end
	rec.Duration = end.Sub(rec.StartTime)
	return rec
}
