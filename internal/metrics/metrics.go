package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comments_messages_persisted_total",
		Help: "Messages written through the durable path.",
	})
	BroadcastAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comments_broadcast_attempts_total",
		Help: "Per-connection delivery attempts across all broadcasts.",
	})
	BroadcastFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comments_broadcast_failures_total",
		Help: "Delivery attempts that failed (slow or dead connection).",
	})
	LiveFramesRelayed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comments_live_frames_relayed_total",
		Help: "Chat frames relayed over the live channel without persistence.",
	})
	ConnectionsEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "comments_connections_evicted_total",
		Help: "Connections removed by the liveness sweep.",
	})
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "comments_active_connections",
		Help: "Currently registered live connections.",
	})
)
