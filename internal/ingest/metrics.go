package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "civicwatch_ingest_batches_total",
		Help: "Change-feed batches applied to the live snapshot.",
	})
	failuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "civicwatch_ingest_failures_total",
		Help: "Change-feed subscription failures.",
	})
	snapshotReports = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "civicwatch_snapshot_reports",
		Help: "Reports in the most recently composed live snapshot.",
	})
)
