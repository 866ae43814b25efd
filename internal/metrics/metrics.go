// Package metrics exposes Prometheus collectors for the recommendation
// service: request throughput and latency, prediction outcomes per path,
// and validation failures per field.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of successful predictions per serving path",
		},
		[]string{"path"}, // "crop" or "targets"
	)

	PredictionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of model inference failures per serving path",
		},
		[]string{"path"},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_failures_total",
			Help: "Total number of rejected requests per offending field",
		},
		[]string{"field"},
	)

	// DroppedTargets counts regression targets present in the training
	// metadata but missing from the known water-quality set. The response
	// silently omits them; this counter makes that drift observable.
	DroppedTargets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dropped_targets_total",
			Help: "Total number of prediction values dropped for unknown targets",
		},
	)
)
