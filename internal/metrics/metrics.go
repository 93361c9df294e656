package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interview_questions_served_total",
			Help: "Total number of next-question results returned, by question key",
		},
		[]string{"key"},
	)

	InterviewsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_completions_total",
			Help: "Total number of completed interview sessions",
		},
	)

	RemainingCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interview_remaining_candidates",
			Help:    "Number of candidate visa types left after filtering",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
	)

	RecommendationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interview_recommendation_failures_total",
			Help: "Total number of recommender faults",
		},
	)

	EligibilityRuleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eligibility_rule_errors_total",
			Help: "Eligibility rule evaluations that errored or returned a non-boolean",
		},
		[]string{"rule_id"},
	)

	CatalogCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Visa catalog cache hits",
		},
		[]string{"backend"},
	)

	CatalogCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Visa catalog cache misses",
		},
		[]string{"backend"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)
