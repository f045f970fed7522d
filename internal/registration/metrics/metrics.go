package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registration module.
type Metrics struct {
	// Accepted submissions by initial status
	SubmissionsAccepted *prometheus.CounterVec

	// Rejected submissions by the field that failed first
	SubmissionsRejected *prometheus.CounterVec

	// Lifecycle transitions by action and outcome
	Transitions *prometheus.CounterVec

	// Full submit latency including validation and persistence
	SubmitLatency prometheus.Histogram
}

// New creates a Metrics instance with all registration metrics registered.
func New() *Metrics {
	return &Metrics{
		SubmissionsAccepted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventreg_submissions_accepted_total",
			Help: "Accepted registration submissions by initial lifecycle status",
		}, []string{"status"}),

		SubmissionsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventreg_submissions_rejected_total",
			Help: "Rejected registration submissions by first failing field",
		}, []string{"field"}),

		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "eventreg_transitions_total",
			Help: "Lifecycle transition attempts by action and outcome",
		}, []string{"action", "outcome"}), // action: "confirm", "cancel", "mark_paid", "expire"

		SubmitLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventreg_submit_duration_seconds",
			Help:    "Duration of full submission handling including validation and persistence",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementAccepted records an accepted submission.
func (m *Metrics) IncrementAccepted(status string) {
	if m != nil {
		m.SubmissionsAccepted.WithLabelValues(status).Inc()
	}
}

// IncrementRejected records a rejected submission.
func (m *Metrics) IncrementRejected(field string) {
	if m != nil {
		m.SubmissionsRejected.WithLabelValues(field).Inc()
	}
}

// IncrementTransition records a lifecycle transition attempt.
func (m *Metrics) IncrementTransition(action, outcome string) {
	if m != nil {
		m.Transitions.WithLabelValues(action, outcome).Inc()
	}
}

// ObserveSubmitLatency records the duration of a submission.
func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}
