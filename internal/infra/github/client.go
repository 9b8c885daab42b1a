// Package github signs users in with GitHub OAuth and reads their identity.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"

	"pipehub/internal/observability/metrics"
	"pipehub/internal/resilience/circuitbreaker"
	"pipehub/internal/resilience/retry"
	"pipehub/internal/usecase/tenant"
)

const (
	// DefaultAPIBaseURL is the GitHub REST API root.
	DefaultAPIBaseURL = "https://api.github.com"

	providerName = "github"
)

// Config holds the OAuth application settings.
type Config struct {
	ClientID     string `yaml:"client_id" env:"CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"CLIENT_SECRET"`
	// RedirectURL is this service's /callback URL as registered with GitHub.
	RedirectURL string `yaml:"redirect_url" env:"REDIRECT_URL"`

	// Overrides for tests and GitHub Enterprise. Empty means github.com.
	AuthURL    string        `yaml:"auth_url" env:"AUTH_URL"`
	TokenURL   string        `yaml:"token_url" env:"TOKEN_URL"`
	APIBaseURL string        `yaml:"api_base_url" env:"API_BASE_URL"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// Client performs the OAuth code exchange and the user lookup.
type Client struct {
	oauth   *oauth2.Config
	apiBase string
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	endpoint := oauthgithub.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	apiBase := cfg.APIBaseURL
	if apiBase == "" {
		apiBase = DefaultAPIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       nil, // public profile only
		},
		apiBase: strings.TrimRight(apiBase, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: circuitbreaker.New(circuitbreaker.GitHubAPIConfig()),
		retry:   retry.GitHubAPIConfig(),
	}
}

// AuthorizeURL returns the GitHub consent page URL carrying state.
func (c *Client) AuthorizeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Breaker exposes the circuit breaker for health reporting.
func (c *Client) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// Authenticate exchanges an authorization code for a token and returns the
// GitHub user it belongs to.
func (c *Client) Authenticate(ctx context.Context, code string) (tenant.GitHubUser, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	start := time.Now()
	token, err := circuitbreaker.Do(c.breaker, func() (*oauth2.Token, error) {
		return c.oauth.Exchange(ctx, code)
	})
	metrics.RecordProviderCall(providerName, "exchange", callStatus(err), time.Since(start))
	if err != nil {
		return tenant.GitHubUser{}, fmt.Errorf("exchange code: %w", err)
	}

	return c.User(ctx, token.AccessToken)
}

// User fetches the profile of the account owning accessToken.
// 5xx, 429 and network timeouts are retried.
func (c *Client) User(ctx context.Context, accessToken string) (tenant.GitHubUser, error) {
	var user tenant.GitHubUser
	start := time.Now()
	err := retry.WithBackoff(ctx, c.retry, func() error {
		u, err := circuitbreaker.Do(c.breaker, func() (tenant.GitHubUser, error) {
			return c.fetchUser(ctx, accessToken)
		})
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	metrics.RecordProviderCall(providerName, "user", callStatus(err), time.Since(start))
	if err != nil {
		slog.WarnContext(ctx, "github user lookup failed", slog.Any("error", err))
		return tenant.GitHubUser{}, fmt.Errorf("fetch github user: %w", err)
	}
	return user, nil
}

func (c *Client) fetchUser(ctx context.Context, accessToken string) (tenant.GitHubUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/user", nil)
	if err != nil {
		return tenant.GitHubUser{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "pipehub")

	resp, err := c.http.Do(req)
	if err != nil {
		return tenant.GitHubUser{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return tenant.GitHubUser{}, err
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return tenant.GitHubUser{}, &retry.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    msg,
			RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var user tenant.GitHubUser
	if err := json.Unmarshal(body, &user); err != nil {
		return tenant.GitHubUser{}, fmt.Errorf("decode github user: %w", err)
	}
	if user.ID == 0 || user.Login == "" {
		return tenant.GitHubUser{}, errors.New("github user response missing id or login")
	}
	return user, nil
}

func callStatus(err error) string {
	if err == nil {
		return metrics.StatusSuccess
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return metrics.StatusCircuitOpen
	}
	return metrics.StatusProviderError
}
