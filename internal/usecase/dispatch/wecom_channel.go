package dispatch

import (
	"context"
	"log/slog"
	"time"

	"pipehub/internal/domain/entity"
	"pipehub/internal/infra/notifier"
	"pipehub/internal/infra/tokencache"
)

// DefaultMaxAttempts is the total number of enterprise chat sends per delivery.
const DefaultMaxAttempts = 4

// Token refresh reasons.
const (
	refreshMissing = "missing"
	refreshStale   = "stale"
	refreshRetry   = "retry"
)

// RetryPolicy controls how a failed enterprise chat send is retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first
	MaxAttempts int

	// Delay is slept between attempts; zero retries immediately
	Delay time.Duration
}

// DefaultRetryPolicy returns four attempts with no delay in between.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts}
}

// WeComChannel delivers through an enterprise chat client, caching the access
// token per tenant.
//
// A failed send is treated as evidence that the cached token may have been
// revoked, so every retry first fetches and caches a new token, whether or not
// the old one had expired. A failed token fetch consumes an attempt.
type WeComChannel struct {
	client notifier.EnterpriseChatClient
	cache  *tokencache.Cache
	clock  tokencache.Clock
	policy RetryPolicy
}

// NewWeComChannel creates a WeComChannel. A nil clock means the system clock.
func NewWeComChannel(client notifier.EnterpriseChatClient, cache *tokencache.Cache, clock tokencache.Clock, policy RetryPolicy) *WeComChannel {
	if clock == nil {
		clock = tokencache.SystemClock{}
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	return &WeComChannel{
		client: client,
		cache:  cache,
		clock:  clock,
		policy: policy,
	}
}

// Name returns "wecom".
func (c *WeComChannel) Name() string {
	return notifier.ProviderWeCom
}

// Enabled reports whether both corp id and secret are configured.
func (c *WeComChannel) Enabled(cfg *entity.ChannelConfig) bool {
	return cfg.EnterpriseChatEnabled()
}

// Send implements Channel.
func (c *WeComChannel) Send(ctx context.Context, cfg *entity.ChannelConfig, d Delivery) (int, error) {
	creds := notifier.WeComCredentialsFrom(cfg)

	var lastErr error
	attempt := 0
	for attempt < c.policy.MaxAttempts {
		attempt++

		if attempt > 1 {
			RecordRetry(c.Name())
			c.wait()
		}

		token, err := c.accessToken(ctx, d.TenantID, creds, attempt > 1)
		if err != nil {
			lastErr = err
			slog.WarnContext(ctx, "wecom token fetch failed",
				slog.Int64("tenant_id", d.TenantID),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			continue
		}

		err = c.client.Send(ctx, creds, token, d.Message, d.ToParty)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
		slog.WarnContext(ctx, "wecom send failed",
			slog.Int64("tenant_id", d.TenantID),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.policy.MaxAttempts),
			slog.Any("error", err))
	}

	return attempt, lastErr
}

// accessToken returns a usable token for tenantID. Unless force is set a
// cached, unexpired token is reused.
func (c *WeComChannel) accessToken(ctx context.Context, tenantID int64, creds notifier.WeComCredentials, force bool) (string, error) {
	reason := refreshRetry
	if !force {
		cached, ok := c.cache.Get(tenantID)
		switch {
		case !ok:
			reason = refreshMissing
		case cached.IsStale(c.clock.Now()):
			reason = refreshStale
		default:
			return cached.AccessToken, nil
		}
	}

	RecordTokenRefresh(reason)
	fresh, err := c.client.FetchToken(ctx, creds)
	if err != nil {
		return "", err
	}
	c.cache.Put(tenantID, fresh)

	// Last write wins; a concurrent dispatch may have stored a newer token.
	if cached, ok := c.cache.Get(tenantID); ok {
		return cached.AccessToken, nil
	}
	return fresh.AccessToken, nil
}

// wait sleeps for the retry delay.
func (c *WeComChannel) wait() {
	if c.policy.Delay > 0 {
		time.Sleep(c.policy.Delay)
	}
}
