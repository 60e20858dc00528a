package vqa

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects run-level instrumentation. A nil *Metrics is a valid
// no-op receiver so the core can run uninstrumented.
type Metrics struct {
	evaluations  prometheus.Counter
	iterations   prometheus.Counter
	runsTotal    *prometheus.CounterVec
	evalDuration prometheus.Histogram
}

// NewMetrics registers the core metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qvar_evaluations_total",
			Help: "Cost function evaluations dispatched to the backend.",
		}),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qvar_iterations_total",
			Help: "Optimization iterations executed across all runs.",
		}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qvar_runs_total",
			Help: "Completed runs by termination reason.",
		}, []string{"reason"}),
		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "qvar_evaluation_duration_seconds",
			Help:    "Wall-clock duration of single cost evaluations.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}
	reg.MustRegister(m.evaluations, m.iterations, m.runsTotal, m.evalDuration)
	return m
}

// ObserveEvaluation records one dispatched evaluation and its duration.
func (m *Metrics) ObserveEvaluation(d time.Duration) {
	if m == nil {
		return
	}
	m.evaluations.Inc()
	m.evalDuration.Observe(d.Seconds())
}

// ObserveIteration records one completed runner iteration.
func (m *Metrics) ObserveIteration() {
	if m == nil {
		return
	}
	m.iterations.Inc()
}

// ObserveRun records a run reaching a terminal state.
func (m *Metrics) ObserveRun(reason TerminationReason) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(reason)).Inc()
}
