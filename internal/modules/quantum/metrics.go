package quantum

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// evolutionsTotal counts evolutions by integrator and result
	evolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qmashup_walk_evolutions_total",
		Help: "Total quantum walk evolutions by integrator and result",
	}, []string{"integrator", "result"})

	// evolveDuration tracks wall time of one evolution
	evolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "qmashup_walk_evolve_duration_seconds",
		Help:    "Duration of one quantum walk evolution",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
	}, []string{"integrator"})

	// degenerateSteps counts steps absorbed by the normalisation epsilon guard
	degenerateSteps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qmashup_walk_degenerate_steps_total",
		Help: "Walk steps whose amplitude norm collapsed below the epsilon guard",
	})
)
