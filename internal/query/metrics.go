package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var searchesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "lookout",
		Name:      "searches_total",
		Help:      "Total internet searches dispatched",
	},
	[]string{"backend", "status"}, // "ok", "error"
)
