package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the wallet counters. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	earningsCredited        *prometheus.CounterVec
	withdrawalsRequested    *prometheus.CounterVec
	withdrawalTransitions   *prometheus.CounterVec
	subscriptionActivations *prometheus.CounterVec
	signatureFailures       prometheus.Counter
	subscriptionsExpired    prometheus.Counter
}

// New registers the counters on a private registry together with the Go runtime
// and process collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		earningsCredited: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carewallet_earnings_credited_total",
				Help: "Booking credits received, by whether they created a ledger entry.",
			},
			[]string{"result"}, // created | replayed
		),
		withdrawalsRequested: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carewallet_withdrawals_requested_total",
				Help: "Withdrawal requests by outcome.",
			},
			[]string{"result"}, // accepted | insufficient_balance | invalid
		),
		withdrawalTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carewallet_withdrawal_transitions_total",
				Help: "Accepted withdrawal status transitions by target status.",
			},
			[]string{"status"},
		),
		subscriptionActivations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carewallet_subscription_activations_total",
				Help: "Subscription verify calls that ended active, by whether they activated or replayed.",
			},
			[]string{"result"}, // activated | replayed
		),
		signatureFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carewallet_payment_signature_failures_total",
			Help: "Gateway confirmations rejected for a bad signature.",
		}),
		subscriptionsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "carewallet_subscriptions_expired_total",
			Help: "Subscriptions flipped to expired by the sweep.",
		}),
	}

	registry.MustRegister(
		m.earningsCredited,
		m.withdrawalsRequested,
		m.withdrawalTransitions,
		m.subscriptionActivations,
		m.signatureFailures,
		m.subscriptionsExpired,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) EarningCredited(created bool) {
	if m == nil {
		return
	}
	result := "replayed"
	if created {
		result = "created"
	}
	m.earningsCredited.WithLabelValues(result).Inc()
}

func (m *Metrics) WithdrawalRequested(result string) {
	if m == nil {
		return
	}
	m.withdrawalsRequested.WithLabelValues(result).Inc()
}

func (m *Metrics) WithdrawalTransitioned(status string) {
	if m == nil {
		return
	}
	m.withdrawalTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) SubscriptionActivated(activated bool) {
	if m == nil {
		return
	}
	result := "replayed"
	if activated {
		result = "activated"
	}
	m.subscriptionActivations.WithLabelValues(result).Inc()
}

func (m *Metrics) SignatureFailed() {
	if m == nil {
		return
	}
	m.signatureFailures.Inc()
}

func (m *Metrics) SubscriptionsExpired(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.subscriptionsExpired.Add(float64(n))
}
