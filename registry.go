package tracecore

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// SpanRegistry is the concurrent store of in-flight spans, keyed by span
// ID. Operations on distinct IDs proceed without mutual blocking; the
// backing map is sharded. Operations on the same ID are linearizable, and
// Take is an atomic remove-and-return: exactly one concurrent Take for a
// given ID observes the record.
//
// Safe for concurrent use by multiple goroutines.
type SpanRegistry struct {
	spans    *xsync.MapOf[SpanID, *SpanRecord]
	started  atomic.Uint64
	finished atomic.Uint64
}

// NewSpanRegistry creates an empty registry. Most callers want the single
// process-wide registry (see ActiveSpans), which is created exactly once
// no matter how many initializers race; NewSpanRegistry exists for tracers
// that deliberately keep private storage.
func NewSpanRegistry() *SpanRegistry {
	return &SpanRegistry{
		spans: xsync.NewMapOf[SpanID, *SpanRecord](),
	}
}

// Insert adds rec keyed by its span ID. Last insert wins for a given ID -
// ID uniqueness is the caller's responsibility (random 64-bit IDs, with
// collision probability treated as negligible).
func (r *SpanRegistry) Insert(rec *SpanRecord) {
	if rec == nil {
		return
	}
	r.spans.Store(rec.SpanID, rec)
	r.started.Add(1)
}

// Take atomically removes and returns the record for id. The second value
// is false if no record is present - a normal outcome for unsampled spans
// and double finishes, never an error. Of N concurrent Takes for the same
// ID, exactly one succeeds.
//
// Ownership of the returned record transfers to the caller.
func (r *SpanRegistry) Take(id SpanID) (*SpanRecord, bool) {
	rec, ok := r.spans.LoadAndDelete(id)
	if ok {
		r.finished.Add(1)
	}
	return rec, ok
}

// Lookup returns the record for id without removing it. The record is
// still owned by the registry; callers must treat it as read-only.
func (r *SpanRegistry) Lookup(id SpanID) (*SpanRecord, bool) {
	return r.spans.Load(id)
}

// Len returns the number of resident (started, not yet finished) spans.
// Spans that are never finished stay resident until process exit; this
// count is the diagnostic hook for monitoring such leaks.
func (r *SpanRegistry) Len() int {
	return r.spans.Size()
}

// Started returns the total number of spans ever inserted.
func (r *SpanRegistry) Started() uint64 {
	return r.started.Load()
}

// Finished returns the total number of spans taken out.
func (r *SpanRegistry) Finished() uint64 {
	return r.finished.Load()
}
