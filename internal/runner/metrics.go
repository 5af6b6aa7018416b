package runner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports saturation progress to Prometheus.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	iterations  prometheus.Counter
	applied     *prometheus.CounterVec
	bans        *prometheus.CounterVec
	stops       *prometheus.CounterVec
	nodes       prometheus.Gauge
	classes     prometheus.Gauge
	phaseLength *prometheus.HistogramVec
}

// NewMetrics registers the runner collectors with reg.
//
// Registering twice with the same registerer panics, as with promauto.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		iterations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "eqsat",
			Subsystem: "runner",
			Name:      "iterations_total",
			Help:      "Total saturation iterations completed",
		}),
		applied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eqsat",
			Subsystem: "runner",
			Name:      "rule_unions_total",
			Help:      "Total effective unions performed per rule",
		}, []string{"rule"}),
		bans: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eqsat",
			Subsystem: "runner",
			Name:      "rule_bans_total",
			Help:      "Total iterations in which a rule was banned by the scheduler",
		}, []string{"rule"}),
		stops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eqsat",
			Subsystem: "runner",
			Name:      "stops_total",
			Help:      "Total runs stopped, by stop reason",
		}, []string{"reason"}),
		nodes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "eqsat",
			Subsystem: "egraph",
			Name:      "nodes",
			Help:      "Distinct canonical nodes after the last rebuild",
		}),
		classes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "eqsat",
			Subsystem: "egraph",
			Name:      "classes",
			Help:      "Classes after the last rebuild",
		}),
		phaseLength: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eqsat",
			Subsystem: "runner",
			Name:      "phase_duration_seconds",
			Help:      "Duration of the search, apply and rebuild phases",
			Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"phase"}),
	}
}

func (m *Metrics) recordIteration(it Iteration) {
	if m == nil {
		return
	}
	m.iterations.Inc()
	m.nodes.Set(float64(it.Nodes))
	m.classes.Set(float64(it.Classes))
	for rule, n := range it.Applied {
		m.applied.WithLabelValues(rule).Add(float64(n))
	}
	for _, rule := range it.Banned {
		m.bans.WithLabelValues(rule).Inc()
	}
	m.observePhase("search", it.SearchTime)
	m.observePhase("apply", it.ApplyTime)
	m.observePhase("rebuild", it.RebuildTime)
}

func (m *Metrics) observePhase(phase string, d time.Duration) {
	m.phaseLength.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *Metrics) recordStop(reason StopReason) {
	if m == nil {
		return
	}
	m.stops.WithLabelValues(string(reason.Code)).Inc()
}
