package mocker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus metrics for executions.
//
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	steps      prometheus.Counter
	injections *prometheus.CounterVec
	assertions *prometheus.CounterVec
	executions *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Pass a private prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		steps: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "asyncmock_steps_total",
				Help: "Total number of environment steps driven",
			},
		),

		injections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncmock_injections_total",
				Help: "Total number of responses injected, by method and kind",
			},
			[]string{"method", "kind"},
		),

		assertions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncmock_assertions_total",
				Help: "Total number of assertion rules evaluated, by method and result",
			},
			[]string{"method", "result"},
		),

		executions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "asyncmock_executions_total",
				Help: "Total number of executions, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordStep records one driver step.
func (m *Metrics) RecordStep() {
	if m == nil {
		return
	}
	m.steps.Inc()
}

// RecordInjection records an injected response.
func (m *Metrics) RecordInjection(method string, kind InteractionKind) {
	if m == nil {
		return
	}
	m.injections.WithLabelValues(method, string(kind)).Inc()
}

// RecordAssertion records an evaluated assertion rule.
func (m *Metrics) RecordAssertion(method string, passed bool) {
	if m == nil {
		return
	}
	result := "passed"
	if !passed {
		result = "failed"
	}
	m.assertions.WithLabelValues(method, result).Inc()
}

// RecordExecution records a finished execution. A nil err counts as "ok",
// otherwise the outcome is the error code.
func (m *Metrics) RecordExecution(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if e, ok := err.(*Error); ok {
			outcome = string(e.Code)
		}
	}
	m.executions.WithLabelValues(outcome).Inc()
}
