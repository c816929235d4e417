package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the robot. All methods are safe on
// a nil receiver so callers never need to guard optional metrics.
type Metrics struct {
	Registry *prometheus.Registry

	// Check runs by process and outcome (ok, empty, error)
	CheckRuns *prometheus.CounterVec

	// Duration of one check including department resolution
	CheckDuration *prometheus.HistogramVec

	// Work items created and skipped as duplicates, by process
	ItemsQueued  *prometheus.CounterVec
	ItemsSkipped *prometheus.CounterVec

	// Notifications by process, worker and outcome
	Notifications *prometheus.CounterVec

	// Work items finished by the process loop, by process and status
	ItemsProcessed *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		CheckRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kvcheck_check_runs_total",
			Help: "Total quality-control check runs by process and outcome",
		}, []string{"process", "outcome"}),

		CheckDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kvcheck_check_duration_seconds",
			Help:    "Duration of quality-control checks",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"process"}),

		ItemsQueued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kvcheck_work_items_created_total",
			Help: "Work items created per process",
		}, []string{"process"}),

		ItemsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kvcheck_work_items_skipped_total",
			Help: "Work items skipped because their reference already existed",
		}, []string{"process"}),

		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kvcheck_notifications_total",
			Help: "Notifications dispatched by process, worker and outcome",
		}, []string{"process", "worker", "outcome"}),

		ItemsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kvcheck_work_items_processed_total",
			Help: "Work items finished by the process loop by process and status",
		}, []string{"process", "status"}),
	}
}

// ObserveCheck records one check run.
func (m *Metrics) ObserveCheck(process, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.CheckRuns.WithLabelValues(process, outcome).Inc()
	m.CheckDuration.WithLabelValues(process).Observe(d.Seconds())
}

// AddQueued records created and skipped work items for a process.
func (m *Metrics) AddQueued(process string, created, skipped int) {
	if m == nil {
		return
	}
	m.ItemsQueued.WithLabelValues(process).Add(float64(created))
	m.ItemsSkipped.WithLabelValues(process).Add(float64(skipped))
}

// IncrementNotification records one dispatch outcome.
func (m *Metrics) IncrementNotification(process, worker, outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(process, worker, outcome).Inc()
}

// IncrementProcessed records one work item leaving the queue.
func (m *Metrics) IncrementProcessed(process, status string) {
	if m == nil {
		return
	}
	m.ItemsProcessed.WithLabelValues(process, status).Inc()
}
