package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsPushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_sync_records_pushed_total",
			Help: "Pushed records accepted by the server, by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)

	recordsConflicted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_sync_conflicts_total",
			Help: "Pushed or deleted records rejected in favour of a newer server copy.",
		},
		[]string{"kind"},
	)

	recordsPulled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_sync_records_pulled_total",
			Help: "Records returned by pull requests.",
		},
		[]string{"kind"},
	)

	insertRaces = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "daybook_sync_insert_races_total",
			Help: "First inserts that lost to a concurrent writer and were retried as updates.",
		},
		[]string{"kind"},
	)
)
