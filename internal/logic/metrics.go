package logic

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchcache_fetch_results_total",
		Help: "Fetch outcomes by where the returned match came from",
	}, []string{"result"})

	matchesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matchcache_matches_stored_total",
		Help: "Matches fetched from the remote API and written to a store",
	})

	rankResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchcache_rank_lookups_total",
		Help: "Participant rank lookups by result",
	}, []string{"result"})

	ranksInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matchcache_rank_lookups_in_flight",
		Help: "Rank lookups currently holding an admission permit",
	})

	enrichDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "matchcache_enrich_duration_seconds",
		Help:    "Time to enrich every participant of one match",
		Buckets: prometheus.DefBuckets,
	})
)
