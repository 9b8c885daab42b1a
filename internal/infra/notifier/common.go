package notifier

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pipehub/internal/domain/entity"
	"pipehub/internal/observability/metrics"
	"pipehub/internal/resilience/circuitbreaker"
)

const (
	// DefaultConnectTimeout bounds TCP connect and TLS handshake to a provider.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultRequestTimeout bounds a whole provider request including the response body.
	DefaultRequestTimeout = 10 * time.Second

	// maxErrorBodyLength caps how much of an unexpected response body ends up in an error.
	maxErrorBodyLength = 256
	truncationSuffix   = "..."
)

// NewHTTPClient builds the HTTP client shared by provider clients.
// Zero durations fall back to DefaultConnectTimeout and DefaultRequestTimeout.
func NewHTTPClient(connectTimeout, timeout time.Duration) *http.Client {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.TLSHandshakeTimeout = connectTimeout

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// transportError wraps a failure of the HTTPS call itself.
func transportError(provider, op string, err error) *entity.DependencyError {
	return &entity.DependencyError{Provider: provider, Op: op, Err: err}
}

// providerError reports a non-success answer from the provider.
func providerError(provider, op string, code int, message string) *entity.DependencyError {
	return &entity.DependencyError{Provider: provider, Op: op, Code: code, Message: message}
}

// countsAsFailure decides which errors move a provider circuit towards open.
// Provider-level rejections (bad secret, unknown chat) are tenant mistakes and
// say nothing about provider health.
func countsAsFailure(err error) bool {
	var depErr *entity.DependencyError
	if errors.As(err, &depErr) {
		return depErr.IsTransport() || depErr.Code >= http.StatusInternalServerError
	}
	return true
}

// breakerConfig fills the zero fields of override from ProviderConfig(provider).
func breakerConfig(provider string, override circuitbreaker.Config) circuitbreaker.Config {
	cfg := circuitbreaker.ProviderConfig(provider)
	if override.MaxRequests > 0 {
		cfg.MaxRequests = override.MaxRequests
	}
	if override.Interval > 0 {
		cfg.Interval = override.Interval
	}
	if override.Timeout > 0 {
		cfg.Timeout = override.Timeout
	}
	if override.FailureThreshold > 0 {
		cfg.FailureThreshold = override.FailureThreshold
	}
	if override.MinRequests > 0 {
		cfg.MinRequests = override.MinRequests
	}
	return cfg
}

// callStatus maps a call result onto the provider metrics status label.
func callStatus(err error) string {
	if err == nil {
		return metrics.StatusSuccess
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return metrics.StatusCircuitOpen
	}
	var depErr *entity.DependencyError
	if errors.As(err, &depErr) && !depErr.IsTransport() {
		return metrics.StatusProviderError
	}
	return metrics.StatusTransportError
}

// truncate shortens text to maxLength bytes, appending suffix when cut.
func truncate(text string, maxLength int, suffix string) string {
	if len(text) <= maxLength {
		return text
	}

	truncateAt := maxLength - len(suffix)
	if truncateAt < 0 {
		truncateAt = 0
	}

	return text[:truncateAt] + suffix
}

// sensitiveQueryParams are query parameters that carry credentials.
var sensitiveQueryParams = []string{"corpsecret", "access_token"}

// redactURL masks credential-bearing query parameters so a URL can be logged
// or wrapped into an error.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[unparseable url]"
	}
	q := u.Query()
	for _, key := range sensitiveQueryParams {
		if q.Has(key) {
			q.Set(key, redacted)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

const redacted = "REDACTED"

// secretRedactingError hides a secret that a lower layer embedded in its error text.
type secretRedactingError struct {
	err    error
	secret string
}

func (e *secretRedactingError) Error() string {
	return strings.ReplaceAll(e.err.Error(), e.secret, redacted)
}

func (e *secretRedactingError) Unwrap() error {
	return e.err
}

// redactSecret wraps err so that secret never appears in its message.
func redactSecret(err error, secret string) error {
	if err == nil || secret == "" {
		return err
	}
	return &secretRedactingError{err: err, secret: secret}
}
