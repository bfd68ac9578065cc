package npc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the NPC trading cycle.
// A nil *Metrics records nothing.
type Metrics struct {
	CyclesTotal     *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
	TraderOutcomes  *prometheus.CounterVec
	OrdersCreated   *prometheus.CounterVec
	NotionalVolume  prometheus.Counter
	LastCycleErrors prometheus.Gauge
}

// NewMetrics registers the cycle collectors on reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "panelprofits"
	}
	f := promauto.With(reg)
	return &Metrics{
		CyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "npc",
			Name:      "cycles_total",
			Help:      "Total number of NPC trading cycles by status",
		}, []string{"status"}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "npc",
			Name:      "cycle_duration_seconds",
			Help:      "NPC trading cycle duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		TraderOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "npc",
			Name:      "trader_outcomes_total",
			Help:      "Per-trader cycle outcomes (skipped, hold, ordered, error)",
		}, []string{"outcome"}),
		OrdersCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "npc",
			Name:      "orders_created_total",
			Help:      "Orders placed by NPC traders by side and trader type",
		}, []string{"side", "trader_type"}),
		NotionalVolume: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "npc",
			Name:      "notional_volume_total",
			Help:      "Notional value of NPC orders at the prevailing price",
		}),
		LastCycleErrors: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "npc",
			Name:      "last_cycle_errors",
			Help:      "Number of errors recorded by the most recent cycle",
		}),
	}
}

func (m *Metrics) recordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.TraderOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordOrder(side, traderType string, notional float64) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(side, traderType).Inc()
	m.NotionalVolume.Add(notional)
}

func (m *Metrics) recordCycle(res CycleResult, seconds float64) {
	if m == nil {
		return
	}
	status := "ok"
	if len(res.Errors) > 0 {
		status = "partial"
	}
	if res.Failed {
		status = "failed"
	}
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(seconds)
	m.LastCycleErrors.Set(float64(len(res.Errors)))
}
