package notifier

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"pipehub/internal/observability/metrics"
)

// RateLimiter implements token bucket algorithm for rate limiting.
// It keeps outbound calls to a single provider under that provider's quota.
type RateLimiter struct {
	provider string
	limiter  *rate.Limiter
}

// NewRateLimiter creates a new RateLimiter for provider with the specified rate and burst capacity.
//
// Parameters:
//   - provider: Provider name used as the metrics label
//   - requestsPerSecond: Maximum sustained request rate; zero or negative disables limiting
//   - burst: Maximum number of requests that can be made in a burst
//
// Example:
//
//	limiter := NewRateLimiter(ProviderTelegram, 30, 30)
func NewRateLimiter(provider string, requestsPerSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}

	return &RateLimiter{
		provider: provider,
		limiter:  rate.NewLimiter(limit, burst),
	}
}

// Allow blocks until a token is available or the context is canceled.
// It should be called before making a rate-limited request.
func (r *RateLimiter) Allow(ctx context.Context) error {
	start := time.Now()
	err := r.limiter.Wait(ctx)
	metrics.RecordRateLimitWait(r.provider, time.Since(start))
	return err
}
