// Package metrics provides Prometheus collectors for the memory pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sophos"

var (
	// TurnsTotal counts processed user turns by outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of processed user turns",
		},
		[]string{"outcome"}, // "ok" or "apology"
	)

	// TurnDuration tracks end-to-end turn latency.
	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Turn processing latency in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// GenerationFailures counts failed generation calls by caller.
	GenerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Total number of failed generation calls",
		},
		[]string{"component"},
	)

	// Compactions counts summarizer runs by result.
	Compactions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compactions_total",
			Help:      "Total number of raw context compactions",
		},
		[]string{"result"}, // "ok" or "error"
	)

	// FactsIndexed counts fact vectors upserted.
	FactsIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_indexed_total",
			Help:      "Total number of fact vectors upserted",
		},
	)

	// IndexErrors counts embedding and similarity index failures.
	IndexErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_errors_total",
			Help:      "Total number of embedding or index failures",
		},
		[]string{"operation"}, // "upsert" or "query"
	)

	// EmbedCacheHits counts embedding cache hits.
	EmbedCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embed_cache_hits_total",
			Help:      "Total number of embedding cache hits",
		},
	)

	// WeeklyRuns counts per-user weekly aggregations by result.
	WeeklyRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weekly_runs_total",
			Help:      "Total number of per-user weekly aggregations",
		},
		[]string{"result"},
	)

	// FeedbackTotal counts recorded feedback by signal.
	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feedback_total",
			Help:      "Total number of recorded feedback signals",
		},
		[]string{"signal"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
