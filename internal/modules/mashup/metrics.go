package mashup

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qmashup_runs_total",
		Help: "Mashup runs by variant and result",
	}, []string{"variant", "result"})

	runDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qmashup_run_duration_seconds",
		Help:    "Wall time of a mashup generation including persistence",
		Buckets: prometheus.DefBuckets,
	}, []string{"variant"})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qmashup_exports_total",
		Help: "Run exports by result",
	}, []string{"result"})

	runsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qmashup_runs_deleted_total",
		Help: "Runs removed by retention",
	})
)
