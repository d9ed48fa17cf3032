package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters for the time-clock engine, registered on the default registry and
// served by the API server's /metrics endpoint.
var (
	ClockIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewclock_clock_ins_total",
		Help: "Successful clock-in punches.",
	})

	ClockOuts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewclock_clock_outs_total",
		Help: "Successful clock-out punches, manual and automatic.",
	})

	RejectedPunches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crewclock_rejected_punches_total",
		Help: "Punches rejected by the state machine.",
	}, []string{"reason"})

	AutoCloses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewclock_auto_closes_total",
		Help: "Punches force-closed by the reconciliation sweep.",
	})

	SweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crewclock_sweep_failures_total",
		Help: "Ledgers the reconciliation sweep failed to close.",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crewclock_sweep_duration_seconds",
		Help:    "Wall time of a full reconciliation sweep.",
		Buckets: prometheus.DefBuckets,
	})
)
