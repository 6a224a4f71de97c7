package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request dispatch metrics
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_gateway_requests_total",
			Help: "Total number of requests dispatched, by route prefix and status",
		},
		[]string{"route", "status"},
	)

	// Admission control metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_gateway_rate_limit_hits_total",
			Help: "Total number of requests rejected by admission control",
		},
		[]string{"tier"},
	)

	RateLimitStoreErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsefeed_gateway_rate_limit_store_errors_total",
			Help: "Total number of counter-store failures (requests fail closed)",
		},
	)

	// Auth metrics
	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_gateway_auth_failures_total",
			Help: "Total number of rejected authentications",
		},
		[]string{"reason"},
	)

	// Upstream metrics
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_gateway_upstream_errors_total",
			Help: "Total number of unreachable or timed-out upstream calls",
		},
		[]string{"route"},
	)
)
