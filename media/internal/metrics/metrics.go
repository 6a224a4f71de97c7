package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Bus metrics
	EventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulsefeed_media_events_consumed_total",
			Help: "Total number of events consumed, by subject and outcome",
		},
		[]string{"subject", "outcome"},
	)

	// Cleanup metrics
	MediaDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulsefeed_media_records_deleted_total",
			Help: "Total number of media records removed by post deletions",
		},
	)
)
