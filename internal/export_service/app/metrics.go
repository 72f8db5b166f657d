package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsRecordedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "export",
			Name:      "runs_recorded_total",
			Help:      "Total number of dispatch runs recorded in history.",
		},
	)

	exportedRowsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "export",
			Name:      "rows_exported_total",
			Help:      "Total number of rows exported.",
		},
		[]string{"export_type"},
	)

	natsRunEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "export",
			Name:      "nats_run_events_received_total",
			Help:      "Total number of dispatch run events received over NATS.",
		},
		[]string{"subject"},
	)
)
