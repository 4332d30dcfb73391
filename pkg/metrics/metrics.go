// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenAcquisitions counts upstream credential grants by strategy and outcome.
	TokenAcquisitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "draftbff",
		Name:      "token_acquisitions_total",
		Help:      "Upstream access token acquisitions.",
	}, []string{"strategy", "outcome"})

	// TokenCacheHits counts client-credentials lookups served from memory.
	TokenCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "draftbff",
		Name:      "token_cache_hits_total",
		Help:      "Access tokens served from the in-memory cache.",
	})

	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "draftbff",
		Name:      "auth_failures_total",
		Help:      "Rejected requests by auth error code.",
	}, []string{"code"})

	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "draftbff",
		Name:      "upstream_requests_total",
		Help:      "Admin GraphQL calls by operation and outcome.",
	}, []string{"operation", "outcome"})

	HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "draftbff",
		Name:      "http_request_duration_seconds",
		Help:      "Inbound request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
