package tracecore

import (
	"sync"
	"testing"
	"time"
)

// TestCollectorSyncModeToggleUnderTraffic flips sync mode while spans
// arrive from several goroutines. Run with -race.
func TestCollectorSyncModeToggleUnderTraffic(t *testing.T) {
	c := NewCollector("test", 1000)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				c.ExportSpan(*testRecord(uint64(worker*1000 + n)))
			}
		}(i)
	}

	for i := 0; i < 100; i++ {
		c.SetSyncMode(i%2 == 0)
	}
	wg.Wait()
}

func TestCollectorBuffersSpans(t *testing.T) {
	c := NewCollector("test", 10)
	defer c.Close()
	c.SetSyncMode(true)

	for n := 0; n < 3; n++ {
		c.ExportSpan(*testRecord(uint64(n)))
	}

	if c.Count() != 3 {
		t.Errorf("Expected 3 buffered spans, got %d", c.Count())
	}

	spans := c.Export()
	if len(spans) != 3 {
		t.Fatalf("Expected 3 exported spans, got %d", len(spans))
	}
	if c.Count() != 0 {
		t.Errorf("Expected empty buffer after export, got %d", c.Count())
	}

	// Second export returns nothing.
	if spans := c.Export(); spans != nil {
		t.Errorf("Expected nil from empty export, got %d spans", len(spans))
	}
}

func TestCollectorDeepCopies(t *testing.T) {
	c := NewCollector("test", 10)
	defer c.Close()
	c.SetSyncMode(true)

	rec := testRecord(1)
	rec.Attributes = Attributes{"key": "original"}
	c.ExportSpan(*rec)

	// Mutating the producer's copy must not reach the buffer.
	rec.Attributes["key"] = "mutated"

	spans := c.Export()
	if spans[0].Attributes["key"] != "original" {
		t.Error("Expected collector to hold a deep copy of attributes")
	}

	// Mutating the exported slice must not reach later exports either.
	c.ExportSpan(*testRecord(2))
	spans[0].Attributes["key"] = "mutated-again"
	if got := c.Export(); got[0].Attributes != nil && got[0].Attributes["key"] == "mutated-again" {
		t.Error("Expected export to deep-copy buffered spans")
	}
}

func TestCollectorDropsAfterClose(t *testing.T) {
	c := NewCollector("test", 1)
	c.SetSyncMode(true)
	c.Close()

	c.ExportSpan(*testRecord(1))

	if c.DroppedCount() != 1 {
		t.Errorf("Expected 1 dropped span after close, got %d", c.DroppedCount())
	}
}

func TestCollectorReset(t *testing.T) {
	c := NewCollector("test", 10)
	defer c.Close()
	c.SetSyncMode(true)

	c.ExportSpan(*testRecord(1))
	c.Reset()

	if c.Count() != 0 {
		t.Errorf("Expected empty buffer after reset, got %d", c.Count())
	}
	if c.DroppedCount() != 0 {
		t.Errorf("Expected zero dropped after reset, got %d", c.DroppedCount())
	}
}

func TestCollectorAsyncDrain(t *testing.T) {
	c := NewCollector("test", 100)
	defer c.Close()

	for n := 0; n < 20; n++ {
		c.ExportSpan(*testRecord(uint64(n)))
	}

	// Wait for the drain goroutine to pick the spans up.
	deadline := time.Now().Add(time.Second)
	for c.Count() < 20 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if c.Count() != 20 {
		t.Errorf("Expected 20 buffered spans, got %d", c.Count())
	}
}

func TestCollectorCloseIsIdempotent(t *testing.T) {
	c := NewCollector("test", 10)
	c.Close()
	c.Close()
}

func TestAsyncExporterDelivers(t *testing.T) {
	sink := &captureExporter{}
	a, err := NewAsyncExporter(sink, 4, 100)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for n := 0; n < 50; n++ {
		a.ExportSpan(*testRecord(uint64(n)))
	}
	a.Close()

	if sink.count() != 50 {
		t.Errorf("Expected 50 delivered spans, got %d", sink.count())
	}
	if a.Dropped() != 0 {
		t.Errorf("Expected no drops, got %d", a.Dropped())
	}
}

// blockingExporter holds workers until released.
type blockingExporter struct {
	release chan struct{}
}

func (e *blockingExporter) ExportSpan(SpanRecord) {
	<-e.release
}

func TestAsyncExporterDropsWhenSaturated(t *testing.T) {
	blocked := &blockingExporter{release: make(chan struct{})}
	a, err := NewAsyncExporter(blocked, 1, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// One span occupies the worker, one fills the queue; give the worker
	// a moment to pick the first one up so the counts are stable.
	a.ExportSpan(*testRecord(1))
	time.Sleep(10 * time.Millisecond)
	a.ExportSpan(*testRecord(2))

	// Everything further must be dropped, not block the caller.
	for n := 3; n < 10; n++ {
		a.ExportSpan(*testRecord(uint64(n)))
	}

	if a.Dropped() == 0 {
		t.Error("Expected drops once the queue was saturated")
	}

	close(blocked.release)
	a.Close()
}

// TestAsyncExporterCloseDrainsQueue closes the exporter with spans still
// queued: every span must either reach the sink or be counted dropped,
// and with a worker available none should be dropped.
func TestAsyncExporterCloseDrainsQueue(t *testing.T) {
	const spans = 100
	const rounds = 20

	for round := 0; round < rounds; round++ {
		sink := &captureExporter{}
		a, err := NewAsyncExporter(sink, 1, spans)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		for n := 0; n < spans; n++ {
			a.ExportSpan(*testRecord(uint64(n)))
		}
		a.Close()

		delivered := sink.count()
		dropped := int(a.Dropped())
		if delivered+dropped != spans {
			t.Fatalf("Round %d: %d spans vanished (%d delivered, %d dropped)",
				round, spans-delivered-dropped, delivered, dropped)
		}
		if dropped != 0 {
			t.Fatalf("Round %d: expected queued spans to be drained, %d dropped", round, dropped)
		}
	}
}

func TestAsyncExporterDropsAfterClose(t *testing.T) {
	sink := &captureExporter{}
	a, err := NewAsyncExporter(sink, 1, 10)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	a.Close()

	a.ExportSpan(*testRecord(1))

	if a.Dropped() != 1 {
		t.Errorf("Expected 1 dropped span after close, got %d", a.Dropped())
	}
	if sink.count() != 0 {
		t.Errorf("Expected nothing delivered after close, got %d", sink.count())
	}
}

func TestAsyncExporterValidation(t *testing.T) {
	if _, err := NewAsyncExporter(nil, 1, 1); err == nil {
		t.Error("Expected error for nil next exporter")
	}
	if _, err := NewAsyncExporter(&captureExporter{}, 0, 1); err == nil {
		t.Error("Expected error for zero workers")
	}
	if _, err := NewAsyncExporter(&captureExporter{}, 1, 0); err == nil {
		t.Error("Expected error for zero queue size")
	}
}

func TestTracerWithCollector(t *testing.T) {
	c := NewCollector("pipeline", 10)
	defer c.Close()
	c.SetSyncMode(true)

	tracer := New(WithRegistry(NewSpanRegistry()), WithExporter(c))
	defer tracer.Close()

	_, sc := tracer.StartSpan(nil, "collected") //nolint:staticcheck
	tracer.FinishSpan(sc)

	spans := c.Export()
	if len(spans) != 1 {
		t.Fatalf("Expected 1 collected span, got %d", len(spans))
	}
	if spans[0].SpanID != sc.SpanID {
		t.Error("Expected the finished span to land in the collector")
	}
}
