package publish

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	postsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soltron",
			Name:      "posts_total",
			Help:      "Total posts published",
		},
		[]string{"strategy", "media"},
	)

	mediaFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soltron",
			Name:      "media_fallbacks_total",
			Help:      "Text-only fallbacks by enrichment stage and outcome",
		},
		[]string{"stage", "outcome"},
	)

	publishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "soltron",
			Name:      "publish_errors_total",
			Help:      "Platform publish failures",
		},
		[]string{"strategy"},
	)
)
