// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertkeeper_http_requests_total",
			Help: "Total number of HTTP requests handled",
		},
		[]string{"method", "route", "code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alertkeeper_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	AlertsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alertkeeper_alerts_created_total",
			Help: "Total number of alerts stored",
		},
	)

	DuplicateIOCsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alertkeeper_duplicate_iocs_rejected_total",
			Help: "Total number of alerts rejected for carrying an already known IOC",
		},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertkeeper_auth_failures_total",
			Help: "Total number of rejected logins and tokens",
		},
		[]string{"reason"},
	)
)

// Reasons used with AuthFailures.
const (
	AuthReasonBadCredentials = "bad_credentials"
	AuthReasonTokenMissing   = "token_missing"
	AuthReasonTokenExpired   = "token_expired"
	AuthReasonTokenInvalid   = "token_invalid"
)
