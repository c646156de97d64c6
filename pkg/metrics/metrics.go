package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: "docgate", Name: "breaker_state", Help: "Circuit breaker state per dependency (0=closed, 1=open, 2=half-open)."},
		[]string{"dependency"},
	)
	BreakerShortCircuits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "breaker_short_circuits_total", Help: "Calls rejected without invoking the dependency."},
		[]string{"dependency"},
	)
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "cache_hits_total", Help: "Search cache hits and misses."},
		[]string{"result"},
	)
	QueuePublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "queue_published_total", Help: "Messages handed to the broker by topic and outcome."},
		[]string{"topic", "outcome"},
	)
	JobsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docgate", Name: "jobs_processed_total", Help: "Indexing jobs by terminal outcome (success, retry, dead_letter, skipped)."},
		[]string{"kind", "outcome"},
	)
	SearchFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docgate", Name: "search_fallbacks_total", Help: "Searches served from the relational store instead of the engine."},
	)
	AnalyticsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docgate", Name: "analytics_dropped_total", Help: "Search analytics records dropped because the queue was full."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(
		RateLimitAllowed,
		RateLimitRejected,
		BreakerState,
		BreakerShortCircuits,
		CacheHits,
		QueuePublished,
		JobsProcessed,
		SearchFallbacks,
		AnalyticsDropped,
	)
}
