package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "runs_total",
			Help:      "Total number of dispatch runs.",
		},
		[]string{"mode", "outcome"}, // mode="bulk"|"single", outcome="completed"|"cancelled"
	)

	messagesDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dispatch",
			Name:      "messages_total",
			Help:      "Total number of delivery attempts within dispatch runs.",
		},
		[]string{"status"}, // "success"|"failed"
	)

	providerRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dispatch",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of delivery provider requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	pacingDelaySecondsHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dispatch",
			Name:      "pacing_delay_seconds",
			Help:      "Inter-message pacing delays applied within dispatch runs.",
			Buckets:   []float64{0.5, 1, 2, 3, 4, 5, 6},
		},
	)
)
