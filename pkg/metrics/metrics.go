// Package metrics exposes Prometheus collectors for the compass engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheResolveTotal counts dataset resolutions per persistence tier.
	// result is "hit" or "miss".
	CacheResolveTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_cache_resolve_total",
			Help: "Dataset cache resolutions by tier and result",
		},
		[]string{"tier", "result"},
	)

	IngestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_ingests_total",
			Help: "Dataset ingestions by outcome",
		},
		[]string{"status"},
	)

	DurableOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_durable_ops_total",
			Help: "Durable store operations by name and status",
		},
		[]string{"op", "status"},
	)

	DurableOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compass_durable_op_duration_seconds",
			Help:    "Duration of durable store operations in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"op"},
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_llm_requests_total",
			Help: "Text-generation requests by phase and status",
		},
		[]string{"phase", "status"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compass_llm_request_duration_seconds",
			Help:    "Duration of text-generation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"phase"},
	)

	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compass_llm_tokens_total",
			Help: "Token usage for text-generation requests",
		},
		[]string{"type"},
	)
)

// RecordTierResolve records a hit or miss for one persistence tier.
func RecordTierResolve(tier string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheResolveTotal.WithLabelValues(tier, result).Inc()
}

// RecordIngest records an ingestion attempt.
func RecordIngest(err error) {
	IngestsTotal.WithLabelValues(status(err)).Inc()
}

// RecordDurableOp records a durable store operation.
func RecordDurableOp(op string, duration time.Duration, err error) {
	DurableOpsTotal.WithLabelValues(op, status(err)).Inc()
	DurableOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordLLMRequest records a text-generation request.
func RecordLLMRequest(phase string, duration time.Duration, err error) {
	LLMRequestsTotal.WithLabelValues(phase, status(err)).Inc()
	LLMRequestDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordLLMTokens records token usage for a text-generation request.
func RecordLLMTokens(inputTokens, outputTokens int64) {
	LLMTokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	LLMTokensTotal.WithLabelValues("output").Add(float64(outputTokens))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
