package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects engine-level counters and latencies. All record methods
// are safe to call on a nil receiver so wiring metrics stays optional in
// tests.
type Metrics struct {
	cyclesGenerated *prometheus.CounterVec
	cyclesClosed    prometheus.Counter
	cyclesOverdue   prometheus.Counter
	cyclesPaid      prometheus.Counter
	payments        prometheus.Counter
	projections     *prometheus.CounterVec
	generateLatency prometheus.Histogram
}

// New creates and registers the billing metrics on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cyclesGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "billing",
				Name:      "cycles_generated_total",
				Help:      "Total number of billing cycles generated, by resulting status",
			},
			[]string{"status"},
		),
		cyclesClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "cycles_closed_total",
			Help:      "Total number of billing cycles closed",
		}),
		cyclesOverdue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "cycles_overdue_total",
			Help:      "Total number of billing cycles flagged overdue",
		}),
		cyclesPaid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "cycles_paid_total",
			Help:      "Total number of billing cycles paid",
		}),
		payments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "billing",
			Name:      "payments_applied_total",
			Help:      "Total number of payments applied against statements",
		}),
		projections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "billing",
				Name:      "payoff_projections_total",
				Help:      "Total number of payoff projections computed, by strategy",
			},
			[]string{"strategy"},
		),
		generateLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "billing",
			Name:      "generate_cycle_duration_seconds",
			Help:      "Time spent generating and closing billing cycles",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.cyclesGenerated, m.cyclesClosed, m.cyclesOverdue, m.cyclesPaid,
		m.payments, m.projections, m.generateLatency,
	)
	return m
}

// CycleGenerated records a generated cycle and its resulting status.
func (m *Metrics) CycleGenerated(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cyclesGenerated.WithLabelValues(status).Inc()
	m.generateLatency.Observe(elapsed.Seconds())
}

// CycleClosed records a cycle close.
func (m *Metrics) CycleClosed() {
	if m == nil {
		return
	}
	m.cyclesClosed.Inc()
}

// CycleOverdue records a cycle going overdue.
func (m *Metrics) CycleOverdue() {
	if m == nil {
		return
	}
	m.cyclesOverdue.Inc()
}

// CyclePaid records a cycle reaching paid state.
func (m *Metrics) CyclePaid() {
	if m == nil {
		return
	}
	m.cyclesPaid.Inc()
}

// PaymentApplied records a payment applied against a statement.
func (m *Metrics) PaymentApplied() {
	if m == nil {
		return
	}
	m.payments.Inc()
}

// ProjectionComputed records a payoff projection by strategy.
func (m *Metrics) ProjectionComputed(strategy string) {
	if m == nil {
		return
	}
	m.projections.WithLabelValues(strategy).Inc()
}
