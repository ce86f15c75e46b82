package consult

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	consultationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lookout",
			Name:      "consultations_total",
			Help:      "Total intent consultations",
		},
		[]string{"outcome"}, // "search", "no_search", "error"
	)

	consultRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lookout",
			Name:      "consult_retries_total",
			Help:      "Total consultation attempts repeated after an invalid verdict",
		},
	)

	consultDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lookout",
			Name:      "consult_duration_seconds",
			Help:      "Duration of intent consultations in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		},
	)
)
