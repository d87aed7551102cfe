package checkout

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts removal outcomes.
type Metrics struct {
	removals *prometheus.CounterVec
	skipped  prometheus.Counter
}

// NewMetrics builds the counters and registers them on reg when non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salelock",
			Name:      "discount_removals_total",
			Help:      "Discount code removal requests by result.",
		}, []string{"result"}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "salelock",
			Name:      "removal_batches_skipped_total",
			Help:      "Removal batches skipped because the host denied discount updates.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.removals, m.skipped)
	}
	return m
}

func (m *Metrics) removed() {
	if m != nil {
		m.removals.WithLabelValues("removed").Inc()
	}
}

func (m *Metrics) failed() {
	if m != nil {
		m.removals.WithLabelValues("failed").Inc()
	}
}

func (m *Metrics) skippedBatch() {
	if m != nil {
		m.skipped.Inc()
	}
}
