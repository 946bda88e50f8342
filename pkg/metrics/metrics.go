package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// GatewayRequests counts outbound requests by result class (ok, client, server, unauthorized, transport).
	GatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bdgd", Subsystem: "gateway", Name: "requests_total", Help: "Outbound requests by result class."},
		[]string{"class"},
	)
	// RefreshAttempts counts calls to the refresh endpoint by outcome (success, rejected, error, timeout, missing).
	RefreshAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bdgd", Subsystem: "gateway", Name: "refresh_total", Help: "Credential refresh attempts by outcome."},
		[]string{"outcome"},
	)
	RefreshWaiters = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "bdgd", Subsystem: "gateway", Name: "refresh_waiters_total", Help: "Requests queued behind an in-flight refresh."},
	)
	Retries = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "bdgd", Subsystem: "gateway", Name: "resends_total", Help: "Requests resent after an authorization failure."},
	)
	SessionExpired = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "bdgd", Subsystem: "gateway", Name: "session_expired_total", Help: "Terminal authorization failures that cleared a live session."},
	)

	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bdgd", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "bdgd", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(GatewayRequests)
	reg.MustRegister(RefreshAttempts)
	reg.MustRegister(RefreshWaiters)
	reg.MustRegister(Retries)
	reg.MustRegister(SessionExpired)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
