// Package metrics exposes token lifecycle counters and HTTP latency through
// go-kit metric interfaces backed by a private Prometheus registry.
package metrics

import (
	"net/http"

	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "userservice"

// Label values for TokensRevoked.
const (
	RevokedLogout  = "logout"
	RevokedExpired = "expired"
	RevokedRotated = "rotated"
)

type Metrics struct {
	registry *prometheus.Registry

	// TokensIssued counts persisted tokens by origin (login, elevation).
	TokensIssued metrics.Counter
	// TokensRevoked counts deleted token rows by reason.
	TokensRevoked metrics.Counter
	// Validations counts validation results by outcome.
	Validations metrics.Counter
	// RequestDuration observes HTTP handling time in seconds by method, route and status.
	RequestDuration metrics.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	issued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "tokens_issued_total", Help: "Tokens persisted to the token store.",
	}, []string{"origin"})
	revoked := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "tokens_revoked_total", Help: "Token rows removed from the token store.",
	}, []string{"reason"})
	validations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "token_validations_total", Help: "Token validation results.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	reg.MustRegister(issued, revoked, validations, duration)

	return &Metrics{
		registry:        reg,
		TokensIssued:    kitprometheus.NewCounter(issued),
		TokensRevoked:   kitprometheus.NewCounter(revoked),
		Validations:     kitprometheus.NewCounter(validations),
		RequestDuration: kitprometheus.NewHistogram(duration),
	}
}

// Discard returns metrics that record nothing.
func Discard() *Metrics {
	return &Metrics{
		registry:        prometheus.NewRegistry(),
		TokensIssued:    discard.NewCounter(),
		TokensRevoked:   discard.NewCounter(),
		Validations:     discard.NewCounter(),
		RequestDuration: discard.NewHistogram(),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
