package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request-path metrics. Registered on the default registry and exposed on
// GET /metrics.
var (
	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compliance",
		Name:      "checks_total",
		Help:      "Completed content checks by recommendation and scorer.",
	}, []string{"recommendation", "model_version"})

	HeuristicFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "compliance",
		Name:      "heuristic_fallbacks_total",
		Help:      "Checks scored by the heuristic because the provider returned no result.",
	})

	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "compliance",
		Name:      "quota_rejections_total",
		Help:      "Checks rejected by the per-key daily quota.",
	})

	CheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "compliance",
		Name:      "check_duration_seconds",
		Help:      "End-to-end latency of the check pipeline.",
		Buckets:   prometheus.DefBuckets,
	})
)
