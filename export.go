package tracecore

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Exporter receives finished span records. Handoff from FinishSpan is
// fire-and-forget: the core does not wait for, retry, or observe the
// outcome of an export. Implementations must be safe for concurrent use.
type Exporter interface {
	ExportSpan(rec SpanRecord)
}

// Collector is a buffering Exporter: it accumulates finished spans until
// a downstream reporter drains them with Export. Safe for concurrent use
// by multiple goroutines.
//
//nolint:govet // Field alignment optimized for readability over memory efficiency
type Collector struct {
	spans        []SpanRecord
	spansCh      chan SpanRecord
	stopCh       chan struct{}
	done         chan struct{}
	droppedCount atomic.Int64
	name         string
	mu           sync.Mutex
	closed       atomic.Bool // Track if collector is closed.
	syncMode     atomic.Bool // Bypass channel for synchronous collection.
}

// NewCollector creates a new collector with the specified name and buffer
// size.
func NewCollector(name string, bufferSize int) *Collector {
	c := &Collector{
		name:    name,
		spans:   make([]SpanRecord, 0, 8), // Start with small capacity.
		spansCh: make(chan SpanRecord, bufferSize),
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.start()
	return c
}

// start runs the collector's main loop, receiving spans from the channel.
func (c *Collector) start() {
	defer close(c.done)

	for {
		select {
		case <-c.stopCh:
			// Drain remaining spans before shutdown.
			for {
				select {
				case rec := <-c.spansCh:
					c.bufferSpan(&rec)
				default:
					return // Clean shutdown.
				}
			}
		case rec := <-c.spansCh:
			c.bufferSpan(&rec)
		}
	}
}

// Close shuts down the collector gracefully. Spans already queued are
// drained into the buffer; later ExportSpan calls are dropped.
func (c *Collector) Close() {
	if c.closed.Swap(true) {
		return
	}
	close(c.stopCh)
	select {
	case <-c.done:
		// Clean shutdown completed.
	case <-time.After(100 * time.Millisecond):
		// Timeout - give up waiting, the drain loop exits on its own.
	}
}

// ExportSpan buffers a finished span with backpressure protection. If the
// internal channel is full, the span is dropped and the drop counter is
// incremented. In sync mode, spans are buffered directly for
// deterministic testing.
func (c *Collector) ExportSpan(rec SpanRecord) {
	// Deep copy so later mutation by the producer cannot leak in.
	recCopy := copyRecord(&rec)

	if c.syncMode.Load() {
		// Direct synchronous collection for tests.
		if c.closed.Load() {
			c.droppedCount.Add(1)
			return
		}
		c.bufferSpan(&recCopy)
		return
	}

	select {
	case c.spansCh <- recCopy:
		// Successfully queued.
	default:
		// Channel full - drop span to prevent blocking.
		c.droppedCount.Add(1)
	}
}

// bufferSpan adds a span to the internal buffer.
func (c *Collector) bufferSpan(rec *SpanRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Grow deliberately rather than relying on append's policy.
	if len(c.spans) >= cap(c.spans) {
		currentCap := cap(c.spans)
		var newCap int
		if currentCap < 1024 {
			// Double capacity for small buffers.
			newCap = currentCap * 2
		} else {
			// Grow by 50% for large buffers to avoid excessive memory usage.
			newCap = currentCap + currentCap/2
		}
		if newCap < 32 {
			newCap = 32
		}
		newSlice := make([]SpanRecord, len(c.spans), newCap)
		copy(newSlice, c.spans)
		c.spans = newSlice
	}
	c.spans = append(c.spans, *rec)
}

// Export returns a copy of all buffered spans and clears the internal
// buffer. The returned slice is safe to modify without affecting the
// collector.
func (c *Collector) Export() []SpanRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.spans) == 0 {
		return nil
	}

	result := make([]SpanRecord, len(c.spans))
	for i := range c.spans {
		result[i] = copyRecord(&c.spans[i])
	}

	// Only shrink if buffer is very oversized to avoid allocation churn.
	if cap(c.spans) > 256 && len(c.spans) < cap(c.spans)/8 {
		newCap := cap(c.spans) / 4
		if newCap < 32 {
			newCap = 32
		}
		c.spans = make([]SpanRecord, 0, newCap)
	} else {
		c.spans = c.spans[:0] // Keep capacity, reset length.
	}

	return result
}

// Count returns the current number of buffered spans.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.spans)
}

// DroppedCount returns the total number of spans dropped due to
// backpressure.
func (c *Collector) DroppedCount() int64 {
	return c.droppedCount.Load()
}

// SetSyncMode enables synchronous collection for testing. When enabled,
// spans are buffered directly without using the channel, eliminating
// async timing from tests.
func (c *Collector) SetSyncMode(sync bool) {
	c.syncMode.Store(sync)
}

// Reset clears all buffered spans and resets the drop counter.
// Does not affect the running goroutine - use Close for that.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.spans = c.spans[:0]
	c.droppedCount.Store(0)
}

// copyRecord deep-copies the payload fields shared by reference.
func copyRecord(rec *SpanRecord) SpanRecord {
	out := *rec
	if rec.Attributes != nil {
		out.Attributes = make(Attributes, len(rec.Attributes))
		for k, v := range rec.Attributes {
			out.Attributes[k] = v
		}
	}
	if rec.Events != nil {
		out.Events = append([]Event(nil), rec.Events...)
	}
	if rec.Links != nil {
		out.Links = append([]Link(nil), rec.Links...)
	}
	return out
}

// AsyncExporter decouples export from the finish path with a bounded
// worker pool. When the queue is full, spans are dropped and counted
// rather than blocking the caller.
type AsyncExporter struct {
	next    Exporter
	tasks   chan SpanRecord
	stop    chan struct{}
	dropped atomic.Uint64
	wg      sync.WaitGroup
}

// NewAsyncExporter wraps next with a pool of workers feeding from a queue
// of queueSize spans.
func NewAsyncExporter(next Exporter, workers, queueSize int) (*AsyncExporter, error) {
	if next == nil {
		return nil, errors.New("next exporter must not be nil")
	}
	if workers <= 0 {
		return nil, errors.New("workers must be > 0")
	}
	if queueSize <= 0 {
		return nil, errors.New("queueSize must be > 0")
	}

	a := &AsyncExporter{
		next:  next,
		tasks: make(chan SpanRecord, queueSize),
		stop:  make(chan struct{}),
	}
	a.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go a.run()
	}
	return a, nil
}

func (a *AsyncExporter) run() {
	defer a.wg.Done()
	for {
		select {
		case rec := <-a.tasks:
			a.next.ExportSpan(rec)
		case <-a.stop:
			// Drain remaining spans before shutdown.
			for {
				select {
				case rec := <-a.tasks:
					a.next.ExportSpan(rec)
				default:
					return // Clean shutdown.
				}
			}
		}
	}
}

// ExportSpan queues rec for the workers, dropping it when the queue is
// full or the exporter is closed.
func (a *AsyncExporter) ExportSpan(rec SpanRecord) {
	select {
	case <-a.stop:
		a.dropped.Add(1)
		return
	default:
	}
	select {
	case a.tasks <- rec:
	default:
		a.dropped.Add(1)
	}
}

// Dropped returns the number of spans dropped due to a full queue.
func (a *AsyncExporter) Dropped() uint64 {
	return a.dropped.Load()
}

// Close stops the workers, draining already-queued spans before
// returning. Later ExportSpan calls are dropped and counted.
func (a *AsyncExporter) Close() {
	close(a.stop)
	a.wg.Wait()
}
