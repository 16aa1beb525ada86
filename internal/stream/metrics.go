package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectionsActive tracks currently connected spectators.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "duelcore_stream_connections_active",
		Help: "Number of currently connected websocket spectators",
	})

	// MessagesSentTotal tracks events delivered over websocket.
	MessagesSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duelcore_stream_messages_sent_total",
		Help: "Total number of websocket messages delivered",
	})
)
