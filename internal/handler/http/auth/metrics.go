package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// authRequestsTotal counts login callbacks by result.
	authRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_requests_total",
			Help: "Total OAuth login callbacks by result",
		},
		[]string{"result"}, // success | state_mismatch | exchange_failed | login_failed
	)

	// authDuration tracks the duration of the OAuth callback.
	authDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auth_duration_seconds",
			Help:    "OAuth callback duration",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
	)

	// authzCheckDuration tracks session verification duration.
	authzCheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "authz_check_duration_seconds",
			Help:    "Session check duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)

	// sessionRejectedTotal counts requests turned away for lack of a session.
	sessionRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_session_rejected_total",
			Help: "Requests rejected for a missing or invalid session by method",
		},
		[]string{"method"},
	)
)

// RecordAuthRequest records the result of a login callback.
func RecordAuthRequest(result string) {
	authRequestsTotal.WithLabelValues(result).Inc()
}

// RecordAuthDuration records login callback duration.
func RecordAuthDuration(durationSeconds float64) {
	authDuration.Observe(durationSeconds)
}

// RecordAuthzCheckDuration records session check duration.
func RecordAuthzCheckDuration(durationSeconds float64) {
	authzCheckDuration.Observe(durationSeconds)
}

// RecordSessionRejected records a request rejected by RequireSession.
func RecordSessionRejected(method string) {
	sessionRejectedTotal.WithLabelValues(method).Inc()
}
