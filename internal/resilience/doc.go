// Package resilience groups the fault tolerance helpers used around external calls.
//
// The subpackages cover:
//   - Circuit breakers for the messaging providers, GitHub and the database
//   - Retry with exponential backoff and jitter for startup pings and GitHub calls
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.ProviderConfig("wecom"))
//	token, err := circuitbreaker.Do(cb, func() (string, error) {
//	    return fetchToken(ctx)
//	})
//
//	err := retry.WithBackoff(ctx, retry.DBStartupConfig(), func() error {
//	    return db.PingContext(ctx)
//	})
package resilience
