// Package metrics exposes Prometheus counters for account and session outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeOK              = "ok"
	OutcomeInvalid         = "invalid"
	OutcomeDuplicate       = "duplicate"
	OutcomeNotFound        = "not_found"
	OutcomeInvalidPassword = "invalid_password"
	OutcomeError           = "error"
	OutcomeMissingToken    = "missing_token"
	OutcomeInvalidToken    = "invalid_token"
)

// Metrics holds the service counters. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Registrations  *prometheus.CounterVec
	Logins         *prometheus.CounterVec
	GateRejections *prometheus.CounterVec
}

// New creates the counters and registers them, along with the Go runtime and
// process collectors, on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_accounts_registrations_total",
				Help: "Total number of registration attempts by outcome",
			},
			[]string{"outcome"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_accounts_logins_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
		GateRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "campus_accounts_auth_rejections_total",
				Help: "Total number of protected requests rejected by reason",
			},
			[]string{"reason"},
		),
	}

	reg.MustRegister(
		m.Registrations,
		m.Logins,
		m.GateRejections,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRejection(reason string) {
	if m == nil {
		return
	}
	m.GateRejections.WithLabelValues(reason).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
