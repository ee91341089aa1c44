// internal/metrics/subscriptions.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionTransitionsTotal,
		lifecycleSweepsTotal,
	)
}

var (
	subscriptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_transitions_total",
			Help: "Subscription state changes by kind.",
		},
		[]string{"kind"}, // created, cancelled, renewed, expired
	)

	lifecycleSweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_lifecycle_sweeps_total",
			Help: "Lifecycle sweep runs by outcome.",
		},
		[]string{"result"}, // ok, skipped, error
	)
)

func IncSubscriptionTransition(kind string) {
	subscriptionTransitionsTotal.WithLabelValues(kind).Inc()
}

func AddSubscriptionTransitions(kind string, n int) {
	subscriptionTransitionsTotal.WithLabelValues(kind).Add(float64(n))
}

func IncLifecycleSweep(result string) {
	lifecycleSweepsTotal.WithLabelValues(result).Inc()
}
