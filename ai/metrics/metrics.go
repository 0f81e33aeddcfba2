// Package metrics exposes Prometheus instrumentation for the turn pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every metric the turn pipeline records.
type Collector struct {
	TurnLatency        *prometheus.HistogramVec
	TurnsTotal         *prometheus.CounterVec
	FirstSentenceDelay prometheus.Histogram
	ValidatorOutcomes  *prometheus.CounterVec
	CacheEvents        *prometheus.CounterVec
	LLMTokens          *prometheus.CounterVec
	BackgroundErrors   prometheus.Counter
}

// NewCollector creates and registers the collectors on a registry.
// Pass nil to use the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		TurnLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mentora",
			Name:      "turn_latency_seconds",
			Help:      "End-to-end latency of one learner turn.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}, []string{"agent", "fast_path"}),

		TurnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mentora",
			Name:      "turns_total",
			Help:      "Learner turns processed, by outcome.",
		}, []string{"outcome"}),

		FirstSentenceDelay: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mentora",
			Name:      "first_sentence_seconds",
			Help:      "Delay until the first sentence of a streamed response.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4},
		}),

		ValidatorOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mentora",
			Name:      "validator_outcomes_total",
			Help:      "Validator state machine outcomes.",
		}, []string{"outcome"}),

		CacheEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mentora",
			Name:      "cache_events_total",
			Help:      "Cache hits and misses by cache name.",
		}, []string{"cache", "event"}),

		LLMTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mentora",
			Name:      "llm_tokens_total",
			Help:      "Tokens consumed by model calls.",
		}, []string{"kind"}),

		BackgroundErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mentora",
			Name:      "background_task_errors_total",
			Help:      "Errors swallowed by fire-and-forget background tasks.",
		}),
	}
}

// RecordTokens adds one call's token usage.
func (c *Collector) RecordTokens(prompt, completion, cacheRead int) {
	c.LLMTokens.WithLabelValues("prompt").Add(float64(prompt))
	c.LLMTokens.WithLabelValues("completion").Add(float64(completion))
	if cacheRead > 0 {
		c.LLMTokens.WithLabelValues("cache_read").Add(float64(cacheRead))
	}
}
