// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinfolio",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by cache name and result (hit, miss, stale).",
		},
		[]string{"cache", "result"},
	)

	coalescedWaiters = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinfolio",
			Subsystem: "cache",
			Name:      "coalesced_total",
			Help:      "Requests that joined an in-flight fetch instead of starting one.",
		},
		[]string{"cache"},
	)

	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinfolio",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Outbound market-data requests by endpoint and outcome.",
		},
		[]string{"endpoint", "status"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coinfolio",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound market-data requests.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"endpoint"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinfolio",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coinfolio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)
)

func init() {
	Registry.MustRegister(
		cacheLookups,
		coalescedWaiters,
		upstreamRequests,
		upstreamDuration,
		httpRequests,
		httpDuration,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordCacheLookup counts a cache lookup outcome.
func RecordCacheLookup(cache, result string) {
	cacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordCoalesced counts a caller that shared another caller's fetch.
func RecordCoalesced(cache string) {
	coalescedWaiters.WithLabelValues(cache).Inc()
}

// RecordUpstream records one outbound request.
func RecordUpstream(endpoint, status string, d time.Duration) {
	upstreamRequests.WithLabelValues(endpoint, status).Inc()
	upstreamDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordHTTP records one served HTTP request.
func RecordHTTP(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
