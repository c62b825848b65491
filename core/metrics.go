package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"metachain-devtest/core/model"
)

// Metrics records sealing latency and per transaction outcomes.
type Metrics struct {
	SealDuration prometheus.Histogram
	Outcomes     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SealDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "devnode",
			Subsystem: "engine",
			Name:      "create_block_duration_seconds",
			Help:      "engine_createBlock round trip duration",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "devnode",
			Subsystem: "engine",
			Name:      "outcomes_total",
			Help:      "Transactions correlated to a sealed block",
		}, []string{"kind", "result"}),
	}
}

func (m *Metrics) observeSeal(d time.Duration) {
	if m == nil {
		return
	}
	m.SealDuration.Observe(d.Seconds())
}

func (m *Metrics) observeOutcome(kind model.RecordKind, o *model.ExtrinsicOutcome) {
	if m == nil {
		return
	}
	result := "success"
	if !o.Successful {
		result = "failed"
	}
	m.Outcomes.WithLabelValues(string(kind), result).Inc()
}
