package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AssignmentMetrics records dispatch outcomes per action.
type AssignmentMetrics struct {
	total    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewAssignmentMetrics registers the assignment metrics on the provided registerer.
func NewAssignmentMetrics(reg prometheus.Registerer) *AssignmentMetrics {
	if reg == nil {
		return &AssignmentMetrics{}
	}
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assignment_total",
		Help: "Assignment operations by action and outcome.",
	}, []string{"action", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assignment_duration_seconds",
		Help:    "Duration of assignment operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})
	reg.MustRegister(total, duration)
	return &AssignmentMetrics{
		total:    total,
		duration: duration,
	}
}

// IncOutcome increments the counter for the given action and outcome.
func (a *AssignmentMetrics) IncOutcome(action, outcome string) {
	if a == nil || a.total == nil {
		return
	}
	a.total.WithLabelValues(normalizeLabel(action), normalizeLabel(outcome)).Inc()
}

// ObserveDuration records how long the named action took.
func (a *AssignmentMetrics) ObserveDuration(action string, duration time.Duration) {
	if a == nil || a.duration == nil {
		return
	}
	a.duration.WithLabelValues(normalizeLabel(action)).Observe(duration.Seconds())
}
