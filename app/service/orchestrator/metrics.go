package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	turnsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtslayer_turns_total",
		Help: "Completed conversation turns by outcome",
	}, []string{"outcome"})

	modelCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtslayer_model_calls_total",
		Help: "Remote model calls by model and result",
	}, []string{"model", "result"})

	modelCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "debtslayer_model_call_duration_seconds",
		Help:    "Latency of remote model calls",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
	}, []string{"model"})

	fallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debtslayer_fallbacks_total",
		Help: "Turns that switched to the other model after a rate limit",
	})

	tokensTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtslayer_tokens_total",
		Help: "Tokens consumed by kind",
	}, []string{"model", "kind"})
)
