// Package telemetry exposes Prometheus instrumentation for the training
// pipeline and the explanation engine.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the collectors the pipeline and the explanation engine
// report into. Label "model" carries the pipeline model name, "type" the
// model variant.
type Metrics struct {
	TrainingsTotal     *prometheus.CounterVec
	TrainingFailures   *prometheus.CounterVec
	TrainingDuration   *prometheus.HistogramVec
	PredictionsTotal   *prometheus.CounterVec
	ExplanationLatency prometheus.Histogram
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	CacheSize          prometheus.Gauge
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on the given registerer. Tests
// pass a fresh registry to avoid duplicate-registration panics.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TrainingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slopewise_trainings_total",
			Help: "Completed model training runs.",
		}, []string{"model", "type"}),
		TrainingFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slopewise_training_failures_total",
			Help: "Model training runs that returned an error.",
		}, []string{"model", "type"}),
		TrainingDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "slopewise_training_duration_seconds",
			Help:    "Wall-clock duration of model training runs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"type"}),
		PredictionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slopewise_predictions_total",
			Help: "Predictions served, per model.",
		}, []string{"model"}),
		ExplanationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "slopewise_explanation_latency_seconds",
			Help:    "Latency of single-prediction explanations.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "slopewise_explanation_cache_hits_total",
			Help: "Explanation cache lookups served from cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "slopewise_explanation_cache_misses_total",
			Help: "Explanation cache lookups that missed.",
		}),
		CacheSize: factory.NewGauge(prometheus.GaugeOpts{
			Name: "slopewise_explanation_cache_entries",
			Help: "Current number of cached explanations.",
		}),
	}
}
