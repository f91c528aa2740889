// Package metrics holds the Prometheus collectors exported on /metrics.
//
// Collectors are package-level and registered on the default registry at
// init, so any package can record without having them injected:
//
//	metrics.HandshakeOutcomes.WithLabelValues("new_user").Inc()
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accessible_chennai"

var (
	// HTTPRequestsTotal counts finished requests by route pattern, method
	// and status code. The route is the chi pattern ("/api/user/{id}/mode"),
	// never the raw path, to keep cardinality bounded.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency, by route and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	// HandshakeOutcomes counts finished Google sign-ins. The label is an
	// outcome kind (new_user, existing_user) or a failure reason.
	HandshakeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "google_handshakes_total",
		Help:      "Google sign-in handshakes, by outcome or failure reason.",
	}, []string{"outcome"})

	// PasswordLogins counts password login attempts by result
	// (success, invalid_credentials, external_login_required, error).
	PasswordLogins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_logins_total",
		Help:      "Password login attempts, by result.",
	}, []string{"result"})

	RecordsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_created_total",
		Help:      "Community records created, by collection.",
	}, []string{"collection"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-client rate limiter.",
	})
)
