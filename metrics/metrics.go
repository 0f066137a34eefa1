// Package metrics holds the storefront's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors plus the Go runtime ones.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fabrino",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "fabrino",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"method", "path"},
	)

	checkoutOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fabrino",
			Subsystem: "checkout",
			Name:      "completions_total",
			Help:      "Checkouts by outcome (recorded, local_only, failed).",
		},
		[]string{"outcome"},
	)

	museRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "fabrino",
			Subsystem: "muse",
			Name:      "requests_total",
			Help:      "Suggestion requests by result.",
		},
		[]string{"result"},
	)

	// CatalogueLive is 1 while the catalogue is served from backend data.
	CatalogueLive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fabrino",
			Subsystem: "catalogue",
			Name:      "live",
			Help:      "Whether the catalogue cache holds backend data.",
		},
	)

	// ActiveSessions tracks sessions currently held in memory.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "fabrino",
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of storefront sessions held in memory.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		checkoutOutcomes,
		museRequests,
		CatalogueLive,
		ActiveSessions,
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one handled request. path should be the route
// template, not the raw URL, to keep label cardinality bounded.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordCheckout(outcome string) {
	checkoutOutcomes.WithLabelValues(outcome).Inc()
}

func RecordMuse(result string) {
	museRequests.WithLabelValues(result).Inc()
}
