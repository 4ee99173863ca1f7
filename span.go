package tracecore

import (
	"context"
	"encoding/hex"
	"time"
)

// TraceID identifies the trace a span belongs to. 128 bits, random.
type TraceID [16]byte

// SpanID identifies a single span. 64 bits, random, unique among all
// currently-active spans in the registry.
type SpanID [8]byte

// IsValid reports whether the trace ID is non-zero.
func (t TraceID) IsValid() bool {
	return t != TraceID{}
}

// String returns the lowercase hex encoding of the trace ID.
func (t TraceID) String() string {
	return hex.EncodeToString(t[:])
}

// MarshalText implements encoding.TextMarshaler so IDs serialize as hex.
func (t TraceID) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// IsValid reports whether the span ID is non-zero.
func (s SpanID) IsValid() bool {
	return s != SpanID{}
}

// String returns the lowercase hex encoding of the span ID.
func (s SpanID) String() string {
	return hex.EncodeToString(s[:])
}

// MarshalText implements encoding.TextMarshaler so IDs serialize as hex.
func (s SpanID) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SpanKind describes the relationship between a span and the rest of its
// trace.
type SpanKind int

const (
	// SpanKindInternal is the default kind: work internal to the process.
	SpanKindInternal SpanKind = iota
	// SpanKindServer marks the server side of a remote call.
	SpanKindServer
	// SpanKindClient marks the client side of a remote call.
	SpanKindClient
	// SpanKindProducer marks the producing side of an async message.
	SpanKindProducer
	// SpanKindConsumer marks the consuming side of an async message.
	SpanKindConsumer
)

// ValidateSpanKind coerces unknown kinds to SpanKindInternal.
func ValidateSpanKind(k SpanKind) SpanKind {
	switch k {
	case SpanKindInternal, SpanKindServer, SpanKindClient, SpanKindProducer, SpanKindConsumer:
		return k
	default:
		return SpanKindInternal
	}
}

// String returns the lowercase name of the kind.
func (k SpanKind) String() string {
	switch k {
	case SpanKindServer:
		return "server"
	case SpanKindClient:
		return "client"
	case SpanKindProducer:
		return "producer"
	case SpanKindConsumer:
		return "consumer"
	default:
		return "internal"
	}
}

// TraceFlags are the bit flags carried with a span context.
type TraceFlags byte

// FlagsSampled marks a span as sampled. Only sampled spans are stored in
// the registry and forwarded to the exporter; unsampled spans are no-ops
// at every stage.
const FlagsSampled = TraceFlags(0x01)

// IsSampled reports whether the sampled bit is set.
func (f TraceFlags) IsSampled() bool {
	return f&FlagsSampled == FlagsSampled
}

// WithSampled returns the flags with the sampled bit set or cleared.
func (f TraceFlags) WithSampled(sampled bool) TraceFlags {
	if sampled {
		return f | FlagsSampled
	}
	return f &^ FlagsSampled
}

// TraceState is vendor-specific key/value propagation data carried
// alongside a span context. Opaque to this package.
type TraceState string

// StatusCode is the coarse outcome of a span.
type StatusCode int

const (
	// StatusUnset is the default span status.
	StatusUnset StatusCode = iota
	// StatusOK marks an explicitly successful span.
	StatusOK
	// StatusError marks a failed span.
	StatusError
)

// Status is the outcome recorded on a finished span.
type Status struct {
	Description string     `json:"description,omitempty"`
	Code        StatusCode `json:"code"`
}

// Event is a timestamped annotation on a span.
type Event struct {
	Time       time.Time  `json:"time"`
	Name       string     `json:"name"`
	Attributes Attributes `json:"attributes,omitempty"`
}

// Link references a related span, usually in another trace.
type Link struct {
	Attributes Attributes `json:"attributes,omitempty"`
	TraceState TraceState `json:"trace_state,omitempty"`
	TraceID    TraceID    `json:"trace_id"`
	SpanID     SpanID     `json:"span_id"`
}

// SpanRecord is the accumulated state of one span. The SpanRegistry owns
// the record while the span is active; ownership transfers to the caller
// of Take (normally the finish path, which hands it to the exporter).
//
// Records are not mutated in place after insertion - late context fields
// are folded in by the builder at finish time, on the taken record.
//
//nolint:govet // Field alignment optimized for JSON serialization order
type SpanRecord struct {
	Attributes Attributes    `json:"attributes,omitempty"`
	Events     []Event       `json:"events,omitempty"`
	Links      []Link        `json:"links,omitempty"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time,omitempty"`
	Duration   time.Duration `json:"duration"`
	Name       string        `json:"name"`
	TraceState TraceState    `json:"trace_state,omitempty"`
	Status     Status        `json:"status"`
	TraceID    TraceID       `json:"trace_id"`
	SpanID     SpanID        `json:"span_id"`
	ParentID   SpanID        `json:"parent_id,omitempty"`
	Kind       SpanKind      `json:"kind"`
	Flags      TraceFlags    `json:"flags"`
}

// SpanContext is the caller-facing identity of a span: enough to finish
// it, propagate it, and parent children under it.
type SpanContext struct {
	TraceState TraceState
	TraceID    TraceID
	SpanID     SpanID
	Flags      TraceFlags
	Remote     bool
}

// IsValid reports whether the context identifies a span at all.
func (sc SpanContext) IsValid() bool {
	return sc.TraceID.IsValid() && sc.SpanID.IsValid()
}

// IsSampled reports whether the span behind this context is recorded.
func (sc SpanContext) IsSampled() bool {
	return sc.Flags.IsSampled()
}

// bundleKeyType is a private type for context keys to avoid collisions.
type bundleKeyType string

const (
	bundleKey bundleKeyType = "tracecore"
)

// ContextWithSpanContext returns a context carrying sc. Spans started from
// the returned context become children of sc.
func ContextWithSpanContext(parent context.Context, sc SpanContext) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, bundleKey, sc)
}

// SpanContextFromContext extracts the current span context from a context.
// Returns the zero SpanContext if none is present.
func SpanContextFromContext(ctx context.Context) SpanContext {
	if ctx == nil {
		return SpanContext{}
	}
	if sc, ok := ctx.Value(bundleKey).(SpanContext); ok {
		return sc
	}
	return SpanContext{}
}
