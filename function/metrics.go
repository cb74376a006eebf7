package function

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeFailure = "failure"
	OutcomeFault   = "fault"
)

// Metrics holds the Prometheus collectors of instrumented functions.
type Metrics struct {
	Calls    *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics registers the function collectors into reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gomodel",
				Name:      "function_calls_total",
				Help:      "Total number of function calls by outcome",
			},
			[]string{"function", "outcome"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "gomodel",
				Name:      "function_duration_seconds",
				Help:      "Function call duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"function"},
		),
	}
}

func (m *Metrics) observe(name string, res Result, err error, elapsed time.Duration) {
	outcome := OutcomeOK
	switch {
	case err != nil:
		outcome = OutcomeFault
	case res.IsFailure():
		outcome = OutcomeFailure
	}
	m.Calls.WithLabelValues(name, outcome).Inc()
	m.Duration.WithLabelValues(name).Observe(elapsed.Seconds())
}
