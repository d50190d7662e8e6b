// Package metrics exposes Prometheus collectors for the site backend.
//
// Collectors are registered on the default registry through promauto and
// served by promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Analytics
	PageViewsRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_page_views_recorded_total",
			Help: "Total number of page views applied to the analytics aggregate",
		},
	)

	AnalyticsWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_write_failures_total",
			Help: "Total number of analytics writes that failed and were dropped",
		},
	)

	AnalyticsReadFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "analytics_read_fallbacks_total",
			Help: "Total number of analytics reads that fell back to an empty aggregate",
		},
	)

	WriteQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "write_queue_pending",
			Help: "Number of operations waiting in a store write queue",
		},
		[]string{"queue"},
	)

	// Gallery
	GalleryMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_mutations_total",
			Help: "Total number of gallery mutations by operation and result",
		},
		[]string{"operation", "result"}, // operation: add, update, delete, reorder
	)

	GalleryReadFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_read_fallbacks_total",
			Help: "Total number of gallery reads that fell back to the default collection",
		},
	)

	// Contact form
	ContactSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Total number of contact form submissions by outcome",
		},
		[]string{"outcome"}, // "sent", "honeypot", "invalid", "unconfigured", "provider_error"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "http_rate_limit_hits_total",
			Help: "Total number of requests rejected by the per-IP rate limiter",
		},
	)

	// Live admin stream
	LiveClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "live_admin_clients",
			Help: "Current number of connected live analytics clients",
		},
	)
)
