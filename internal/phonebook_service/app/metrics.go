package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	contactsImportedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phonebook",
			Name:      "contacts_imported_total",
			Help:      "Total number of contacts imported from uploaded files.",
		},
		[]string{"format"},
	)

	contactsResetTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "phonebook",
			Name:      "contacts_reset_total",
			Help:      "Total number of contacts reset back to pending.",
		},
	)
)
