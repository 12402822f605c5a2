package host

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts contract calls by method and outcome.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	deposits prometheus.Counter
}

// NewMetrics registers the host collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		calls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "calls_total",
			Help:      "Contract calls by method and outcome (ok or error kind).",
		}, []string{"method", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ledger",
			Name:      "call_duration_seconds",
			Help:      "Contract call latency including the store commit.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"method"}),
		deposits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "ledger",
			Name:      "deposits_total",
			Help:      "Account deposits made outside contract calls.",
		}),
	}
}

func (m *Metrics) observe(method, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(method, outcome).Inc()
	m.duration.WithLabelValues(method).Observe(took.Seconds())
}

func (m *Metrics) deposited() {
	if m == nil {
		return
	}
	m.deposits.Inc()
}
