// Package metrics provides Prometheus metrics for the intake gateway.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	SignupsCompleted prometheus.Counter
	SignupsDuplicate prometheus.Counter
	SignupsFailed    prometheus.Counter
	IntakesRecorded  prometheus.Counter
	IntakesRejected  prometheus.Counter
	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	ResolverLookups  *prometheus.CounterVec
	OutboxPending    prometheus.Gauge
}

// New creates all metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SignupsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provider_signups_completed_total",
			Help: "Total provider signups completed end to end",
		}),
		SignupsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provider_signups_duplicate_total",
			Help: "Total provider signups where an upstream reported a duplicate",
		}),
		SignupsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "provider_signups_failed_total",
			Help: "Total provider signups aborted by an upstream failure",
		}),
		IntakesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patient_intakes_recorded_total",
			Help: "Total patient intake rows inserted",
		}),
		IntakesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patient_intakes_rejected_total",
			Help: "Total patient intake submissions rejected by validation",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upstream_requests_total",
			Help: "Upstream GraphQL calls by service and outcome",
		}, []string{"service", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "upstream_request_duration_seconds",
			Help:    "Upstream GraphQL call duration",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"service"}),
		ResolverLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provider_resolver_lookups_total",
			Help: "Provider identity resolutions by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		OutboxPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_entries",
			Help: "Pending outbox entries",
		}),
	}

	reg.MustRegister(
		m.SignupsCompleted,
		m.SignupsDuplicate,
		m.SignupsFailed,
		m.IntakesRecorded,
		m.IntakesRejected,
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.ResolverLookups,
		m.OutboxPending,
	)

	return m
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
