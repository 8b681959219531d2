// Package metrics holds the process-wide prometheus collectors for backend
// traffic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdo_connects_total",
		Help: "Backend connection attempts.",
	}, []string{"backend", "status"})

	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdo_queries_total",
		Help: "Statements dispatched to a backend, by statement kind.",
	}, []string{"backend", "kind"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pdo_query_duration_seconds",
		Help:    "Time from dispatch until the result set is fully buffered.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}, []string{"backend"})

	ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pdo_errors_total",
		Help: "Failures routed through the error reporter, by error mode.",
	}, []string{"mode"})

	RowsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pdo_rows_fetched_total",
		Help: "Rows buffered from SELECT statements.",
	})
)
