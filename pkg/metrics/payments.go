package metrics

import "github.com/prometheus/client_golang/prometheus"

// Domain metrics for the payment reconciliation flow, exposed on the same
// registry as the HTTP middleware metrics.
var (
	PaymentInitiations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "paygate",
			Name:      "payment_initiations_total",
			Help:      "STK push initiation attempts by result kind.",
		},
		[]string{"result"},
	)

	CallbackOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Subsystem: "paygate",
			Name:      "payment_callbacks_total",
			Help:      "Gateway callback deliveries by reconciliation outcome.",
		},
		[]string{"outcome"},
	)

	// BreakerState 0=CLOSED 1=HALF_OPEN 2=OPEN
	BreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Subsystem: "paygate",
			Name:      "gateway_breaker_state",
			Help:      "Circuit breaker state of the Daraja gateway (0 closed, 1 half-open, 2 open).",
		},
	)
)

func init() {
	prometheus.MustRegister(PaymentInitiations, CallbackOutcomes, BreakerState)
}
