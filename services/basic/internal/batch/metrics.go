package batch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "basicd_batches_started_total",
		Help: "Background batches launched.",
	})

	batchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "basicd_batches_finished_total",
		Help: "Background batches by terminal session state.",
	}, []string{"state"})

	unitsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "basicd_units_completed_total",
		Help: "Simulated work units drained, by outcome.",
	}, []string{"outcome"})

	unitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "basicd_unit_duration_seconds",
		Help:    "Wall time of one simulated work unit.",
		Buckets: prometheus.DefBuckets,
	})

	snapshotsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "basicd_snapshots_emitted_total",
		Help: "Progress envelopes emitted across all streams.",
	})
)
