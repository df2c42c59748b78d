// Package metrics defines Prometheus metrics for the marketplace client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "marketapi"

// Remote call metrics.
var (
	APICallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_call_duration_seconds",
		Help:      "Duration of marketplace API calls in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	APICallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_calls_total",
		Help:      "Total number of marketplace API calls by endpoint and status.",
	}, []string{"endpoint", "status"})

	APICallErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_call_errors_total",
		Help:      "Total number of marketplace API calls that failed before a response.",
	}, []string{"endpoint"})
)

// OAuth metrics.
var (
	TokenGrantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_grants_total",
		Help:      "Total number of OAuth grants by grant type and outcome.",
	}, []string{"grant_type", "outcome"})
)

// Preference metrics.
var (
	PreferencesSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "preferences_submitted_total",
		Help:      "Total number of preferences created on the marketplace.",
	})

	PreferenceItems = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "preference_items",
		Help:      "Number of items per submitted preference.",
		Buckets:   prometheus.LinearBuckets(1, 5, 6), // 1, 6, 11, ..., 26
	})
)

// Rate limiting metrics.
var (
	DailyUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "daily_usage",
		Help:      "Current daily marketplace API call count within the rolling 24-hour window.",
	})

	DailyLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "daily_limit_hits_total",
		Help:      "Total number of calls refused because the daily limit was reached.",
	})
)
