// Package config assembles the service configuration.
//
// Values are layered in this order, later layers winning:
//
//  1. DefaultConfig
//  2. an optional YAML file
//  3. environment variables prefixed with PIPEHUB_
//  4. command line overrides supplied by the caller
//
// The result is validated once all layers are applied.
package config

import (
	"time"

	"pipehub/internal/infra/db"
	"pipehub/internal/infra/github"
	"pipehub/internal/infra/notifier"
	"pipehub/internal/observability/logging"
	"pipehub/internal/observability/tracing"
	"pipehub/internal/resilience/circuitbreaker"
	"pipehub/internal/usecase/dispatch"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PIPEHUB_"

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DATABASE_"`
	WeCom    ProviderConfig `yaml:"wecom" envPrefix:"WECOM_"`
	Telegram ProviderConfig `yaml:"telegram" envPrefix:"TELEGRAM_"`
	Dispatch DispatchConfig `yaml:"dispatch" envPrefix:"DISPATCH_"`
	GitHub   github.Config  `yaml:"github" envPrefix:"GITHUB_"`
	Session  SessionConfig  `yaml:"session" envPrefix:"SESSION_"`
	Log      LogConfig      `yaml:"log" envPrefix:"LOG_"`
	Tracing  tracing.Config `yaml:"tracing" envPrefix:"TRACING_"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`

	// Domain is the public origin of this service, used to build callback URLs.
	Domain string `yaml:"domain" env:"DOMAIN"`

	// WebDomain is the origin of the settings UI users are redirected to after login.
	WebDomain string `yaml:"web_domain" env:"WEB_DOMAIN"`

	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	ReadTimeout       time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout      time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// StaticDir, when set, is served at / for the bundled settings UI.
	StaticDir string `yaml:"static_dir" env:"STATIC_DIR"`

	// LoginRateLimit caps /login and /callback requests per client IP per minute.
	LoginRateLimit int `yaml:"login_rate_limit" env:"LOGIN_RATE_LIMIT"`

	// TrustedProxies lists reverse proxy IPs or CIDR ranges whose
	// X-Forwarded-For header identifies the client. Empty trusts no header.
	TrustedProxies []string `yaml:"trusted_proxies" env:"TRUSTED_PROXIES"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

// DatabaseConfig selects the configuration store.
type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver string `yaml:"driver" env:"DRIVER"`

	// DSN is a Postgres connection string or a SQLite file path.
	DSN string `yaml:"dsn" env:"DSN"`

	// AutoMigrate applies pending migrations at startup.
	AutoMigrate bool `yaml:"auto_migrate" env:"AUTO_MIGRATE"`

	// Pool applies to Postgres only; SQLite sizes its own pools.
	Pool db.ConnectionConfig `yaml:"pool" envPrefix:"POOL_"`
}

// ProviderConfig holds the outbound settings shared by both messaging providers.
type ProviderConfig struct {
	BaseURL           string        `yaml:"base_url" env:"BASE_URL"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout" env:"CONNECT_TIMEOUT"`
	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`
	RequestsPerSecond float64       `yaml:"requests_per_second" env:"REQUESTS_PER_SECOND"`
	Burst             int           `yaml:"burst" env:"BURST"`
	Breaker           BreakerConfig `yaml:"breaker" envPrefix:"BREAKER_"`
}

// BreakerConfig tunes a provider circuit breaker. Zero values keep the preset.
type BreakerConfig struct {
	MinRequests      uint32        `yaml:"min_requests" env:"MIN_REQUESTS"`
	FailureThreshold float64       `yaml:"failure_threshold" env:"FAILURE_THRESHOLD"`
	Timeout          time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// DispatchConfig controls enterprise chat retries and the token cache.
type DispatchConfig struct {
	// MaxAttempts is the total number of enterprise chat sends per message.
	MaxAttempts int `yaml:"max_attempts" env:"MAX_ATTEMPTS"`

	// RetryDelay is slept between attempts.
	RetryDelay time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`

	// TokenCacheShards is rounded up to a power of two.
	TokenCacheShards int `yaml:"token_cache_shards" env:"TOKEN_CACHE_SHARDS"`
}

// SessionConfig controls the login session cookie.
type SessionConfig struct {
	// Secret signs session tokens and must be at least 32 characters.
	Secret       string        `yaml:"secret" env:"SECRET"`
	TTL          time.Duration `yaml:"ttl" env:"TTL"`
	SecureCookie bool          `yaml:"secure_cookie" env:"SECURE_COOKIE"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// DefaultConfig returns a configuration suitable for local development
// against a SQLite file. A session secret must still be supplied.
func DefaultConfig() *Config {
	wecom := notifier.DefaultWeComConfig()
	telegram := notifier.DefaultTelegramConfig()
	pool := db.DefaultConnectionConfig()

	return &Config{
		Server: ServerConfig{
			Addr:              ":8080",
			Domain:            "http://localhost:8080",
			WebDomain:         "http://localhost:8080",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      90 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			MaxBodyBytes:      1 << 20,
			LoginRateLimit:    20,
		},
		Database: DatabaseConfig{
			Driver:      db.DriverSQLite,
			DSN:         "pipehub.db",
			AutoMigrate: true,
			Pool:        pool,
		},
		WeCom: ProviderConfig{
			BaseURL:           wecom.BaseURL,
			ConnectTimeout:    wecom.ConnectTimeout,
			Timeout:           wecom.Timeout,
			RequestsPerSecond: wecom.RequestsPerSecond,
			Burst:             wecom.Burst,
		},
		Telegram: ProviderConfig{
			BaseURL:           telegram.BaseURL,
			ConnectTimeout:    telegram.ConnectTimeout,
			Timeout:           telegram.Timeout,
			RequestsPerSecond: telegram.RequestsPerSecond,
			Burst:             telegram.Burst,
		},
		Dispatch: DispatchConfig{
			MaxAttempts:      dispatch.DefaultMaxAttempts,
			RetryDelay:       0,
			TokenCacheShards: 32,
		},
		GitHub: github.Config{
			RedirectURL: "http://localhost:8080/callback",
			Timeout:     10 * time.Second,
		},
		Session: SessionConfig{
			TTL: 7 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatJSON,
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// WeComClientConfig converts the WeCom section into notifier settings.
func (c *Config) WeComClientConfig() notifier.WeComConfig {
	return notifier.WeComConfig{
		BaseURL:           c.WeCom.BaseURL,
		ConnectTimeout:    c.WeCom.ConnectTimeout,
		Timeout:           c.WeCom.Timeout,
		RequestsPerSecond: c.WeCom.RequestsPerSecond,
		Burst:             c.WeCom.Burst,
		Breaker:           c.WeCom.Breaker.toCircuitBreaker(notifier.ProviderWeCom),
	}
}

// TelegramClientConfig converts the Telegram section into notifier settings.
func (c *Config) TelegramClientConfig() notifier.TelegramConfig {
	return notifier.TelegramConfig{
		BaseURL:           c.Telegram.BaseURL,
		ConnectTimeout:    c.Telegram.ConnectTimeout,
		Timeout:           c.Telegram.Timeout,
		RequestsPerSecond: c.Telegram.RequestsPerSecond,
		Burst:             c.Telegram.Burst,
		Breaker:           c.Telegram.Breaker.toCircuitBreaker(notifier.ProviderTelegram),
	}
}

// DispatchBudget is the longest a /send request can take: every enterprise
// chat attempt may spend a full timeout on the token fetch and another on the
// send, plus the delays between attempts. Telegram runs concurrently.
func (c *Config) DispatchBudget() time.Duration {
	attempts := time.Duration(max(c.Dispatch.MaxAttempts, 1))
	wecom := attempts*2*c.WeCom.Timeout + (attempts-1)*c.Dispatch.RetryDelay
	return max(wecom, c.Telegram.Timeout)
}

// RetryPolicy converts the dispatch section into the enterprise chat retry policy.
func (c *Config) RetryPolicy() dispatch.RetryPolicy {
	return dispatch.RetryPolicy{
		MaxAttempts: c.Dispatch.MaxAttempts,
		Delay:       c.Dispatch.RetryDelay,
	}
}

func (b BreakerConfig) toCircuitBreaker(name string) circuitbreaker.Config {
	return circuitbreaker.Config{
		Name:             name,
		MinRequests:      b.MinRequests,
		FailureThreshold: b.FailureThreshold,
		Timeout:          b.Timeout,
	}
}
