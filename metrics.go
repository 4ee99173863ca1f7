package tracecore

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the prometheus instrumentation for a tracer and its span
// registry. The core never evicts leaked spans; the resident gauge is the
// supported way to watch for them from outside the process.
type Metrics struct {
	started  prometheus.Counter
	finished prometheus.Counter
	resident prometheus.GaugeFunc
}

// NewMetrics builds and registers the collectors onto reg (the default
// registerer when nil). The resident gauge reads live from sr.
func NewMetrics(reg prometheus.Registerer, sr *SpanRegistry) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tracecore",
			Subsystem: "spans",
			Name:      "started_total",
			Help:      "Number of sampled spans inserted into the active span registry.",
		}),
		finished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tracecore",
			Subsystem: "spans",
			Name:      "finished_total",
			Help:      "Number of spans taken out of the registry and handed to the exporter.",
		}),
		resident: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "tracecore",
			Subsystem: "spans",
			Name:      "resident",
			Help:      "Spans currently resident in the active span registry (started, not finished).",
		}, func() float64 {
			return float64(sr.Len())
		}),
	}

	reg.MustRegister(m.started, m.finished, m.resident)
	return m
}

// Nil-safe increment hooks so an uninstrumented tracer pays a single nil
// check on the hot path.

func (m *Metrics) spanStarted() {
	if m == nil {
		return
	}
	m.started.Inc()
}

func (m *Metrics) spanFinished() {
	if m == nil {
		return
	}
	m.finished.Inc()
}
