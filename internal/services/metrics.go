package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// deliveries counts dispatcher outcomes (sent, retrying, dropped, cancelled).
	deliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_deliveries_total",
			Help: "Delivery attempts by outcome.",
		},
		[]string{"outcome"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_queue_depth",
			Help: "Jobs waiting in the delivery queue.",
		},
	)

	// mirrorReplays counts per-copy replays by outcome (ok, failed).
	mirrorReplays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_mirror_replays_total",
			Help: "Mirrored event replays by outcome.",
		},
		[]string{"outcome"},
	)

	expiredMessages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_expired_messages_total",
			Help: "Logical messages dropped from the registry by expiry.",
		},
	)

	cancelledJobs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_cancelled_jobs_total",
			Help: "Queued jobs cancelled because their message expired.",
		},
	)
)

func init() {
	prometheus.MustRegister(deliveries, queueDepth, mirrorReplays, expiredMessages, cancelledJobs)
}
