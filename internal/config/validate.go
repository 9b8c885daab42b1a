package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"pipehub/internal/handler/http/middleware"
	"pipehub/internal/infra/db"
	"pipehub/internal/observability/logging"
)

// MinSessionSecretLength is the shortest accepted session signing secret.
const MinSessionSecretLength = 32

// FieldError reports an invalid configuration value.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks every section and returns all problems joined together.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		loadMetrics.RecordValidationError(field)
		errs = append(errs, &FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Server.Addr == "" {
		add("server.addr", "is required")
	}
	if err := validateOrigin(c.Server.Domain); err != nil {
		add("server.domain", "%v", err)
	}
	if err := validateOrigin(c.Server.WebDomain); err != nil {
		add("server.web_domain", "%v", err)
	}
	if c.Server.MaxBodyBytes <= 0 {
		add("server.max_body_bytes", "must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		add("server.shutdown_timeout", "must be positive")
	}
	if c.Server.WriteTimeout < 0 {
		add("server.write_timeout", "must not be negative")
	} else if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.DispatchBudget() {
		add("server.write_timeout", "must exceed the worst-case dispatch time %s (0 disables it)", c.DispatchBudget())
	}
	if c.Server.LoginRateLimit < 0 {
		add("server.login_rate_limit", "must not be negative")
	}
	if _, err := middleware.ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		add("server.trusted_proxies", "%v", err)
	}

	switch c.Database.Driver {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		add("database.driver", "must be %q or %q, got %q", db.DriverPostgres, db.DriverSQLite, c.Database.Driver)
	}
	if c.Database.DSN == "" {
		add("database.dsn", "is required")
	}

	for name, p := range map[string]ProviderConfig{"wecom": c.WeCom, "telegram": c.Telegram} {
		if err := validateOrigin(p.BaseURL); err != nil {
			add(name+".base_url", "%v", err)
		}
		if p.Timeout <= 0 {
			add(name+".timeout", "must be positive")
		}
		if p.RequestsPerSecond < 0 {
			add(name+".requests_per_second", "must not be negative")
		}
		if p.Breaker.FailureThreshold < 0 || p.Breaker.FailureThreshold > 1 {
			add(name+".breaker.failure_threshold", "must be between 0 and 1")
		}
	}

	if c.Dispatch.MaxAttempts < 1 {
		add("dispatch.max_attempts", "must be at least 1")
	}
	if c.Dispatch.RetryDelay < 0 {
		add("dispatch.retry_delay", "must not be negative")
	}
	if c.Dispatch.TokenCacheShards < 1 {
		add("dispatch.token_cache_shards", "must be at least 1")
	}

	if c.GitHub.ClientID == "" {
		add("github.client_id", "is required")
	}
	if c.GitHub.ClientSecret == "" {
		add("github.client_secret", "is required")
	}

	if len(c.Session.Secret) < MinSessionSecretLength {
		add("session.secret", "must be at least %d characters", MinSessionSecretLength)
	}
	if c.Session.TTL <= 0 {
		add("session.ttl", "must be positive")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "%v", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatJSON, logging.FormatText:
	default:
		add("log.format", "must be %q or %q", logging.FormatJSON, logging.FormatText)
	}

	if err := c.Tracing.Validate(); err != nil {
		add("tracing.sample_ratio", "%v", err)
	}

	return errors.Join(errs...)
}

// validateOrigin accepts absolute http(s) URLs.
func validateOrigin(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}
