package tracecore

import (
	"crypto/rand"
	"runtime"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// IDGenerator produces trace and span identifiers. Implementations must be
// safe for concurrent use. Uniqueness is probabilistic: uniform-random IDs
// are assumed not to collide, and collisions are not defended against.
type IDGenerator interface {
	NewTraceID() TraceID
	NewSpanID() SpanID
}

// idPool manages a pool of pre-generated IDs to amortize crypto/rand
// overhead.
type idPool[T any] struct {
	factory func() T
	ids     chan T
	stopCh  chan struct{}
	mu      sync.Mutex
	closed  bool
}

// newIDPool creates a new ID pool with the specified capacity.
func newIDPool[T any](capacity int, factory func() T) *idPool[T] {
	pool := &idPool[T]{
		ids:     make(chan T, capacity),
		factory: factory,
		stopCh:  make(chan struct{}),
	}
	// Start background refill goroutine.
	go pool.refill()
	return pool
}

// get retrieves an ID from the pool or generates one if pool is empty.
func (p *idPool[T]) get() T {
	select {
	case id := <-p.ids:
		return id
	default:
		// Pool empty, generate directly (fallback for burst load).
		return p.factory()
	}
}

// refill maintains the pool by generating IDs in background.
func (p *idPool[T]) refill() {
	for {
		select {
		case <-p.stopCh:
			return
		default:
			select {
			case p.ids <- p.factory():
				// Successfully added ID to pool.
			case <-p.stopCh:
				return
			}
		}
	}
}

// close shuts down the ID pool gracefully.
func (p *idPool[T]) close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		close(p.stopCh)
		p.closed = true
	}
}

// pooledIDGenerator is the default IDGenerator: uniform-random IDs from
// crypto/rand, pre-generated in background pools.
type pooledIDGenerator struct {
	traceIDs *idPool[TraceID]
	spanIDs  *idPool[SpanID]
	clock    clockz.Clock
	once     sync.Once
}

// newPooledIDGenerator creates the generator. Pools are lazily initialized
// on first use so an unused generator costs no goroutines.
func newPooledIDGenerator(clock clockz.Clock) *pooledIDGenerator {
	return &pooledIDGenerator{clock: clock}
}

func (g *pooledIDGenerator) ensurePools() {
	g.once.Do(func() {
		// Pool size based on number of CPUs for optimal contention balance.
		poolSize := runtime.NumCPU() * 100

		g.traceIDs = newIDPool(poolSize, func() TraceID {
			var id TraceID
			if _, err := rand.Read(id[:]); err != nil {
				// Fallback to time-based ID if crypto/rand fails.
				return timeSeededTraceID(g.clock.Now())
			}
			return id
		})

		g.spanIDs = newIDPool(poolSize, func() SpanID {
			var id SpanID
			if _, err := rand.Read(id[:]); err != nil {
				// Fallback to time-based ID if crypto/rand fails.
				return timeSeededSpanID(g.clock.Now())
			}
			return id
		})
	})
}

// NewTraceID returns a random 128-bit trace ID.
func (g *pooledIDGenerator) NewTraceID() TraceID {
	g.ensurePools()
	return g.traceIDs.get()
}

// NewSpanID returns a random 64-bit span ID.
func (g *pooledIDGenerator) NewSpanID() SpanID {
	g.ensurePools()
	return g.spanIDs.get()
}

// Close shuts down the background refill goroutines. Routing through
// ensurePools synchronizes with a racing first use, so the pools can
// never be created after they were closed.
func (g *pooledIDGenerator) Close() {
	g.ensurePools()
	g.traceIDs.close()
	g.spanIDs.close()
}

func timeSeededTraceID(now time.Time) TraceID {
	var id TraceID
	ns := now.UnixNano()
	for i := 0; i < 8; i++ {
		id[i] = byte(ns >> (8 * i))
		id[15-i] = byte(ns >> (8 * i))
	}
	return id
}

func timeSeededSpanID(now time.Time) SpanID {
	var id SpanID
	ns := now.UnixNano()
	for i := 0; i < 8; i++ {
		id[i] = byte(ns >> (8 * i))
	}
	return id
}
