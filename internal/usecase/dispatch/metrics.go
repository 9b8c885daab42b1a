package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch results.
const (
	resultDelivered = "delivered"
	resultFailed    = "failed"
	resultRejected  = "rejected"
	resultError     = "error"
)

// Prometheus metrics for message dispatch monitoring
var (
	// dispatchTotal tracks dispatch requests by overall result
	dispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipehub_dispatch_total",
			Help: "Total number of dispatch requests",
		},
		[]string{"result"}, // result: delivered|failed|rejected|error
	)

	// channelSendsTotal tracks per-channel delivery results
	channelSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipehub_channel_sends_total",
			Help: "Total number of channel deliveries",
		},
		[]string{"channel", "status"}, // status: success|failure
	)

	// channelSendDuration tracks per-channel delivery duration including retries
	channelSendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipehub_channel_send_duration_seconds",
			Help:    "Channel delivery duration in seconds, retries included",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"channel"},
	)

	// tokenRefreshTotal tracks access token fetches by reason
	tokenRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipehub_token_refresh_total",
			Help: "Total number of access token fetches",
		},
		[]string{"reason"}, // reason: missing|stale|retry
	)

	// retryAttemptsTotal tracks send retries
	retryAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipehub_retry_attempts_total",
			Help: "Total number of delivery retries",
		},
		[]string{"channel"},
	)
)

// RecordDispatch records the overall result of one dispatch request.
func RecordDispatch(result string) {
	dispatchTotal.WithLabelValues(result).Inc()
}

// RecordChannelResult records one channel delivery and how long it took.
func RecordChannelResult(channel string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	channelSendsTotal.WithLabelValues(channel, status).Inc()
	channelSendDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordTokenRefresh records an access token fetch.
func RecordTokenRefresh(reason string) {
	tokenRefreshTotal.WithLabelValues(reason).Inc()
}

// RecordRetry records a delivery retry on channel.
func RecordRetry(channel string) {
	retryAttemptsTotal.WithLabelValues(channel).Inc()
}
