package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PublishedTotal tracks successfully published events by topic.
	PublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duelcore_events_published_total",
			Help: "Total number of events published",
		},
		[]string{"topic"},
	)

	// PublishErrorsTotal tracks failed publishes by topic.
	PublishErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duelcore_events_publish_errors_total",
			Help: "Total number of event publish failures",
		},
		[]string{"topic"},
	)
)
