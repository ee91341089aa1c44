// internal/metrics/http.go
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		httpRequestsTotal,
		httpRequestDuration,
		cacheRequestsTotal,
		httpPanicsTotal,
	)
}

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP request latency in milliseconds.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"method", "route"},
	)

	httpPanicsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_panics_total",
			Help: "Handler panics recovered, by route.",
		},
		[]string{"route"},
	)

	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache hits and misses.",
		},
		[]string{"cache", "result"}, // e.g., cache="plan", result="hit"
	)
)

func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(float64(elapsed.Milliseconds()))
}

func IncHTTPPanic(route string) {
	if route == "" {
		route = "unmatched"
	}
	httpPanicsTotal.WithLabelValues(route).Inc()
}

func IncCacheRequest(cacheName, result string) {
	cacheRequestsTotal.WithLabelValues(cacheName, result).Inc()
}
