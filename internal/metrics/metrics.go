// Package metrics exposes Prometheus collectors for pipeline progress.
//
// All recording methods are safe to call on a nil *Metrics so the pipeline can
// run without a registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "signup"

// Metrics holds the pipeline collectors
type Metrics struct {
	jobsSubmitted prometheus.Counter
	registrations *prometheus.CounterVec
	lookups       *prometheus.CounterVec
	retries       prometheus.Counter
	outcomes      *prometheus.CounterVec
	persistErrors prometheus.Counter
	queueDepth    *prometheus.GaugeVec
}

// New registers the pipeline collectors on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		jobsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "Jobs seeded onto the registration queue.",
		}),
		registrations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by result.",
		}, []string{"result"}),
		lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_lookups_total",
			Help:      "Verification code lookups by result.",
		}, []string{"result"}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_retries_total",
			Help:      "Jobs put back on the verification queue after a miss.",
		}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Terminal job outcomes persisted to the result store.",
		}, []string{"status"}),
		persistErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_errors_total",
			Help:      "Terminal jobs that could not be written to the result store.",
		}),
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Jobs waiting in a work queue.",
		}, []string{"queue"}),
	}
}

// JobSubmitted counts one seeded job
func (m *Metrics) JobSubmitted() {
	if m == nil {
		return
	}
	m.jobsSubmitted.Inc()
}

// Registration counts one registration attempt
func (m *Metrics) Registration(ok bool) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(resultLabel(ok, "success", "failure")).Inc()
}

// Lookup counts one verification lookup
func (m *Metrics) Lookup(found bool) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(resultLabel(found, "hit", "miss")).Inc()
}

// Retry counts one verification requeue
func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// Outcome counts one persisted terminal job
func (m *Metrics) Outcome(status string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(status).Inc()
}

// PersistError counts one failed result store write
func (m *Metrics) PersistError() {
	if m == nil {
		return
	}
	m.persistErrors.Inc()
}

// QueueDepth sets the number of jobs waiting in queue
func (m *Metrics) QueueDepth(queue string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(queue).Set(float64(depth))
}

// Handler serves the collectors gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func resultLabel(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
