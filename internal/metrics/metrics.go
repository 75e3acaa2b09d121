// Package metrics holds the Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InferenceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biaslens_inference_requests_total",
			Help: "Inference calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "biaslens_inference_duration_seconds",
			Help:    "Latency of inference calls in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	TranslationPipelinesBuilt = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biaslens_translation_pipelines_built_total",
			Help: "Translation pipelines constructed, by target language",
		},
		[]string{"language"},
	)

	TranslationPipelinesCached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "biaslens_translation_pipelines_cached",
			Help: "Translation pipelines currently held in the process cache",
		},
	)

	// 0 = closed, 1 = half-open, 2 = open
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "biaslens_circuit_breaker_state",
			Help: "Circuit breaker state per upstream",
		},
		[]string{"name"},
	)

	NewsSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biaslens_news_searches_total",
			Help: "News source searches by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	WorkerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biaslens_worker_messages_total",
			Help: "Analysis requests consumed by the worker, by outcome",
		},
		[]string{"outcome"},
	)
)

// Outcome returns the outcome label for err.
func Outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// ObserveInference records one inference call that began at start.
func ObserveInference(operation string, start time.Time, err error) {
	InferenceDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	InferenceRequests.WithLabelValues(operation, Outcome(err)).Inc()
}
