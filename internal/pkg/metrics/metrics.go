// Package metrics provides Prometheus metrics definitions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "staffboard"

var (
	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route", "status_code"},
	)

	// DBPoolConnections tracks database connection pool state.
	DBPoolConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_connections",
			Help:      "Number of database connections by state",
		},
		[]string{"state"},
	)

	// PublicationsCreated counts created publications by area.
	PublicationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "publications_created_total",
			Help:      "Publications created, labelled by area",
		},
		[]string{"area"},
	)

	// ReactionsToggled counts like toggles by target kind and direction.
	ReactionsToggled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "content",
			Name:      "reactions_toggled_total",
			Help:      "Reaction toggles, labelled by target and direction",
		},
		[]string{"target", "direction"},
	)

	// ResetTokensIssued counts issued password reset tokens.
	ResetTokensIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "identity",
			Name:      "reset_tokens_issued_total",
			Help:      "Password reset tokens issued",
		},
	)

	// AuthorizationDenials counts policy denials by reason.
	AuthorizationDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "authorization_denials_total",
			Help:      "Authorization denials, labelled by reason",
		},
		[]string{"reason"},
	)
)
