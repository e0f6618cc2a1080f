package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "distance_request_op_duration_seconds",
			Help: "Duration of timed operations",
		},
		[]string{"op", "result"},
	)

	RouteFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distance_request_route_fetches_total",
			Help: "Route computations issued, by outcome",
		},
		[]string{"result"},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "distance_request_submissions_total",
			Help: "Submit attempts, by outcome",
		},
		[]string{"result"},
	)

	BackupRestores = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "distance_request_backup_restores_total",
			Help: "Edits discarded by restoring the backup transaction",
		},
	)

	OpenSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "distance_request_open_sessions",
			Help: "Distance request form sessions currently open",
		},
	)
)
