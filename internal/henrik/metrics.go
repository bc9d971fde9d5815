package henrik

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remoteRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchcache_remote_requests_total",
		Help: "Outbound requests to the match API by operation and status class",
	}, []string{"op", "status"})

	remoteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "matchcache_remote_request_duration_seconds",
		Help:    "Duration of outbound requests to the match API",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	gateCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchcache_rate_gate_calls_total",
		Help: "Outbound calls that went through the rate gate",
	})
)
