package remediation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civicwatch_remediation_operations_total",
		Help: "Remediation operations by outcome.",
	}, []string{"operation", "outcome"})
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "civicwatch_remediation_duration_seconds",
		Help:    "Remediation operation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)
