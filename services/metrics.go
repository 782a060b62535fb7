package services

import "github.com/prometheus/client_golang/prometheus"

var (
	importRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storeadmin",
			Subsystem: "import",
			Name:      "runs_total",
			Help:      "Bulk import runs by outcome",
		},
		[]string{"outcome", "dry_run"},
	)

	importRows = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storeadmin",
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Bulk import rows by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storeadmin",
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Committed status transitions",
		},
		[]string{"entity", "status"},
	)

	ledgerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storeadmin",
			Subsystem: "lifecycle",
			Name:      "ledger_failures_total",
			Help:      "Event ledger appends that failed after a committed write",
		},
		[]string{"entity"},
	)

	droppedChanges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "storeadmin",
			Subsystem: "changes",
			Name:      "dropped_total",
			Help:      "Change notifications dropped for slow subscribers",
		},
	)
)

// Collectors returns the domain metrics, registered next to the HTTP ones
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{importRuns, importRows, transitions, ledgerFailures, droppedChanges}
}
