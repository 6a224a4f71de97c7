package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Bus metrics
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_search_events_consumed_total",
			Help: "Total number of events consumed, by subject and outcome",
		},
		[]string{"subject", "outcome"},
	)

	// Index metrics
	IndexOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_search_index_operations_total",
			Help: "Total number of index mutations, by operation",
		},
		[]string{"operation"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsefeed_search_cache_hits_total",
			Help: "Total number of searches served from cache",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsefeed_search_cache_misses_total",
			Help: "Total number of searches run against the index",
		},
	)
)
