package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result labels for edit metrics.
const (
	ResultOK       = "ok"
	ResultNotFound = "not_found"
	ResultInvalid  = "invalid"
	ResultConflict = "conflict"
	ResultError    = "error"
)

var (
	editsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_edits_total",
		Help: "Plan edits by operation, scope and result",
	}, []string{"operation", "scope", "result"})

	editDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_edit_duration_seconds",
		Help:    "Duration of plan edits including the store transaction",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"operation"})

	affectedMicrocycles = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planner_affected_microcycles",
		Help:    "Microcycles touched by one successful edit",
		Buckets: []float64{1, 2, 4, 6, 8, 12, 16, 24},
	}, []string{"operation"})

	orphanedOverridesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planner_orphaned_overrides_removed_total",
		Help: "Overrides removed by garbage collection",
	})

	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_exports_total",
		Help: "Plan exports to object storage by result",
	}, []string{"result"})
)

// RecordEdit observes one engine call. affected is ignored unless result is ok.
func RecordEdit(operation, scope, result string, affected int, elapsed time.Duration) {
	editsTotal.WithLabelValues(operation, scope, result).Inc()
	editDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
	if result == ResultOK {
		affectedMicrocycles.WithLabelValues(operation).Observe(float64(affected))
	}
}

func RecordOrphansRemoved(n int) {
	orphanedOverridesRemoved.Add(float64(n))
}

func RecordExport(result string) {
	exportsTotal.WithLabelValues(result).Inc()
}
