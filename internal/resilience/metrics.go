package resilience

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "quotes"

// Collectors shared by every breaker and HTTPClient in the process, labelled by target.
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "breaker",
		Name:      "state",
		Help:      "Breaker state per target: 0 closed, 1 open, 2 half-open.",
	}, []string{"target"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "breaker",
		Name:      "transitions_total",
		Help:      "Breaker state transitions.",
	}, []string{"target", "from", "to"})
	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "breaker",
		Name:      "opened_total",
		Help:      "Times a breaker tripped open.",
	}, []string{"target"})
	OutboundAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "outbound",
		Name:      "attempts_total",
		Help:      "Outbound HTTP attempts by target and outcome (ok, retry, rejected).",
	}, []string{"target", "outcome"})
)

// RegisterMetrics registers the collectors with reg, or the default registerer when
// reg is nil. Registering twice is not an error.
func RegisterMetrics(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{BreakerState, BreakerTransitions, BreakerOpenedTotal, OutboundAttempts} {
		var are prometheus.AlreadyRegisteredError
		if err := reg.Register(c); err != nil && !errors.As(err, &are) {
			return err
		}
	}
	return nil
}

func countAttempt(target, outcome string) {
	if target == "" {
		target = "default"
	}
	OutboundAttempts.WithLabelValues(target, outcome).Inc()
}
