// internal/metrics/quota.go
package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		dailyCodesTotal,
		redemptionsTotal,
		redeemedItemsTotal,
	)
}

var (
	dailyCodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daily_codes_total",
			Help: "Daily code requests by outcome.",
		},
		[]string{"result"}, // created, reused, exhausted
	)

	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redemptions_total",
			Help: "Redeem attempts by outcome.",
		},
		[]string{"result"}, // ok, invalid_code, expired, insufficient, error
	)

	redeemedItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redeemed_items_total",
			Help: "Units handed out per item.",
		},
		[]string{"item"},
	)
)

func IncDailyCode(result string) {
	dailyCodesTotal.WithLabelValues(result).Inc()
}

func IncRedemption(result string) {
	redemptionsTotal.WithLabelValues(result).Inc()
}

func AddRedeemedItems(itemA, itemB int) {
	redeemedItemsTotal.WithLabelValues("item_a").Add(float64(itemA))
	redeemedItemsTotal.WithLabelValues("item_b").Add(float64(itemB))
}
