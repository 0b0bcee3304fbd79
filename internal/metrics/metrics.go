// Package metrics exposes prometheus collectors for the deliberation and
// retrieval pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GenerationCalls counts generation calls by model and outcome.
	GenerationCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "concilium_generation_calls_total",
		Help: "Generation provider calls by model and outcome.",
	}, []string{"model", "status"})

	// EmbeddingCalls counts embedding calls by outcome.
	EmbeddingCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "concilium_embedding_calls_total",
		Help: "Embedding provider calls by outcome.",
	}, []string{"status"})

	// EmbeddingCacheHits counts embedding cache hits and misses.
	EmbeddingCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "concilium_embedding_cache_total",
		Help: "Embedding cache lookups by outcome.",
	}, []string{"outcome"})

	// DeliberationDuration observes wall-clock deliberation time.
	DeliberationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "concilium_deliberation_duration_seconds",
		Help:    "Wall-clock duration of full deliberations.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// SearchDuration observes similarity-search latency.
	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "concilium_search_duration_seconds",
		Help:    "Latency of retrieval searches including query embedding.",
		Buckets: prometheus.DefBuckets,
	})

	// DocumentsIngested counts ingested documents.
	DocumentsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "concilium_documents_ingested_total",
		Help: "Documents ingested into the retrieval engine.",
	})
)
