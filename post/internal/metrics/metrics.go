package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsefeed_post_cache_hits_total",
			Help: "Total number of reads served from cache",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsefeed_post_cache_misses_total",
			Help: "Total number of reads computed from the database",
		},
	)

	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsefeed_post_cache_invalidations_total",
			Help: "Total number of coarse cache invalidations",
		},
	)

	// Bus metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_post_events_published_total",
			Help: "Total number of events published, by subject",
		},
		[]string{"subject"},
	)

	EventPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_post_event_publish_errors_total",
			Help: "Total number of failed event publishes, by subject",
		},
		[]string{"subject"},
	)
)
