// Package metrics exposes Prometheus collectors for game activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoundsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairs_rounds_started_total",
		Help: "Rounds dealt.",
	})
	RoundsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairs_rounds_completed_total",
		Help: "Rounds finished with every pair found.",
	})
	RoundDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pairs_round_duration_seconds",
		Help:    "Timer value when a round was won.",
		Buckets: prometheus.ExponentialBuckets(5, 2, 8),
	})
	Clicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pairs_clicks_total",
		Help: "Tile clicks by outcome.",
	}, []string{"outcome"})
	StaleReverts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pairs_stale_reverts_total",
		Help: "Mismatch reverts dropped because their round was replaced.",
	})
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pairs_active_sessions",
		Help: "Sessions currently held in memory.",
	})
)
