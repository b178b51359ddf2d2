// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renderscraper_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "renderscraper_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// ScrapesTotal counts finished scrapes by the engine that produced the
	// result and its status (success, no_price, error).
	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "renderscraper_scrapes_total",
			Help: "Total number of scrape invocations.",
		},
		[]string{"engine", "status"},
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "renderscraper_scrape_duration_seconds",
			Help:    "Duration of scrape invocations.",
			Buckets: []float64{1, 2.5, 5, 10, 15, 30, 50},
		},
		[]string{"engine"},
	)

	FallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "renderscraper_http_fallbacks_total",
			Help: "Scrapes that fell back to plain HTTP after a browser launch failure.",
		},
	)

	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "renderscraper_scrapes_in_flight",
			Help: "Scrape invocations currently running.",
		},
	)
)
