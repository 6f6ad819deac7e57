package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline-level Prometheus metrics. Tool-level metrics live in the
// tools package next to the invocations they measure.
var (
	metricsChatRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskchat_chat_requests_total",
		Help: "Total number of chat requests processed",
	})

	metricsChatLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "taskchat_chat_request_duration_seconds",
		Help:    "Chat request latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	metricsChatOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskchat_chat_outcomes_total",
		Help: "Terminal pipeline outcomes by kind",
	}, []string{"outcome"})

	metricsClassifierFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskchat_classifier_fallbacks_total",
		Help: "Classifications degraded to the unclear fallback after retry",
	})

	metricsRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taskchat_rate_limited_total",
		Help: "Chat requests rejected by the per-owner rate limit",
	})
)

// RecordRateLimited counts one request rejected by the chat rate
// limit. Exported for the HTTP middleware, which sits outside this
// package.
func RecordRateLimited() {
	metricsRateLimited.Inc()
}

// Outcome labels for metricsChatOutcomes.
const (
	outcomeSuccess       = "success"
	outcomeToolError     = "tool_error"
	outcomeLowConfidence = "low_confidence"
	outcomeConfirmation  = "needs_confirmation"
	outcomeNoMatch       = "no_match"
	outcomeValidation    = "validation_error"
)
