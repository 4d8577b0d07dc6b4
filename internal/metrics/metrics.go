package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	ProfileMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_profile_mutations_total",
			Help: "Profile table mutations by operation and result",
		},
		[]string{"op", "result"},
	)

	PermissionDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credit_permission_denials_total",
			Help: "Actions refused by role or subscriber checks",
		},
		[]string{"action"},
	)

	ScoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "credit_score_duration_seconds",
			Help:    "Duration of customer score computations",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		},
	)

	UndoDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "credit_undo_depth",
			Help: "Snapshots on the undo stack",
		},
	)
)

// Result labels an outcome for the counters above.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
