package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"pipehub/internal/domain/entity"
	"pipehub/internal/observability/metrics"
	"pipehub/internal/resilience/circuitbreaker"
)

// DefaultWeComBaseURL is the public WeCom API endpoint.
const DefaultWeComBaseURL = "https://qyapi.weixin.qq.com"

const (
	weComOpGetToken = "gettoken"
	weComOpSend     = "send"

	// maxResponseBytes caps how much of a provider response is read.
	maxResponseBytes = 1 << 20
)

// WeComConfig contains configuration for the WeCom client.
type WeComConfig struct {
	// BaseURL is the API root, without a trailing slash
	BaseURL string

	// ConnectTimeout bounds connection setup; Timeout bounds the whole request
	ConnectTimeout time.Duration
	Timeout        time.Duration

	// RequestsPerSecond and Burst limit outbound calls across all tenants
	RequestsPerSecond float64
	Burst             int

	// Breaker overrides the circuit breaker tuning. Zero fields fall back to
	// circuitbreaker.ProviderConfig.
	Breaker circuitbreaker.Config

	// Now is used to turn expires_in into an absolute expiry. Defaults to time.Now.
	Now func() time.Time
}

// DefaultWeComConfig returns the production WeCom configuration.
func DefaultWeComConfig() WeComConfig {
	return WeComConfig{
		BaseURL:           DefaultWeComBaseURL,
		ConnectTimeout:    DefaultConnectTimeout,
		Timeout:           DefaultRequestTimeout,
		RequestsPerSecond: 50,
		Burst:             50,
	}
}

// WeComClient implements EnterpriseChatClient against the WeCom HTTP API.
type WeComClient struct {
	config      WeComConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
}

var _ EnterpriseChatClient = (*WeComClient)(nil)

// NewWeComClient creates a WeComClient with its own HTTP client, rate limiter and circuit breaker.
func NewWeComClient(config WeComConfig) *WeComClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultWeComBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Now == nil {
		config.Now = time.Now
	}

	return &WeComClient{
		config:      config,
		httpClient:  NewHTTPClient(config.ConnectTimeout, config.Timeout),
		rateLimiter: NewRateLimiter(ProviderWeCom, config.RequestsPerSecond, config.Burst),
		breaker: circuitbreaker.NewWithFailurePredicate(
			breakerConfig(ProviderWeCom, config.Breaker), countsAsFailure),
	}
}

// Breaker exposes the client's circuit breaker for health reporting.
func (c *WeComClient) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// weComStatus is the envelope every WeCom response carries.
type weComStatus struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

func (s *weComStatus) status() *weComStatus { return s }

type weComReply interface {
	status() *weComStatus
}

type weComTokenResponse struct {
	weComStatus
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type weComSendResponse struct {
	weComStatus
	InvalidUser  string `json:"invaliduser,omitempty"`
	InvalidParty string `json:"invalidparty,omitempty"`
}

// WeComMessage is the JSON body of a message/send request.
type WeComMessage struct {
	ToUser                 string           `json:"touser,omitempty"`
	ToParty                string           `json:"toparty,omitempty"`
	AgentID                int64            `json:"agentid"`
	MsgType                string           `json:"msgtype"`
	Text                   WeComMessageText `json:"text"`
	EnableDuplicateCheck   int              `json:"enable_duplicate_check"`
	DuplicateCheckInterval int              `json:"duplicate_check_interval"`
}

// WeComMessageText is the text part of a WeComMessage.
type WeComMessageText struct {
	Content string `json:"content"`
}

// buildMessage addresses the whole application unless a party is given.
func buildMessage(agentID int64, message, toParty string) WeComMessage {
	msg := WeComMessage{
		AgentID: agentID,
		MsgType: "text",
		Text:    WeComMessageText{Content: message},
	}
	if toParty != "" {
		msg.ToParty = toParty
	} else {
		msg.ToUser = "@all"
	}
	return msg
}

// FetchToken calls cgi-bin/gettoken and returns the token with its absolute expiry.
func (c *WeComClient) FetchToken(ctx context.Context, creds WeComCredentials) (entity.CachedToken, error) {
	query := url.Values{}
	query.Set("corpid", creds.CorpID)
	query.Set("corpsecret", creds.Secret)
	endpoint := c.config.BaseURL + "/cgi-bin/gettoken?" + query.Encode()

	var resp weComTokenResponse
	if err := c.call(ctx, weComOpGetToken, http.MethodGet, endpoint, nil, &resp); err != nil {
		return entity.CachedToken{}, err
	}
	if resp.AccessToken == "" {
		return entity.CachedToken{}, providerError(ProviderWeCom, weComOpGetToken, 0, "empty access_token in response")
	}

	return entity.NewCachedToken(resp.AccessToken, resp.ExpiresIn, c.config.Now()), nil
}

// Send calls cgi-bin/message/send with a text message.
func (c *WeComClient) Send(ctx context.Context, creds WeComCredentials, accessToken, message, toParty string) error {
	body, err := json.Marshal(buildMessage(creds.AgentID, message, toParty))
	if err != nil {
		return fmt.Errorf("marshal wecom message: %w", err)
	}

	query := url.Values{}
	query.Set("access_token", accessToken)
	endpoint := c.config.BaseURL + "/cgi-bin/message/send?" + query.Encode()

	var resp weComSendResponse
	return c.call(ctx, weComOpSend, http.MethodPost, endpoint, body, &resp)
}

// call runs one rate-limited, circuit-protected request and records its outcome.
func (c *WeComClient) call(ctx context.Context, op, method, endpoint string, body []byte, out weComReply) error {
	if err := c.rateLimiter.Allow(ctx); err != nil {
		return transportError(ProviderWeCom, op, fmt.Errorf("rate limiter: %w", err))
	}

	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, op, method, endpoint, body, out)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		err = transportError(ProviderWeCom, op, err)
	}
	duration := time.Since(start)
	metrics.RecordProviderCall(ProviderWeCom, op, callStatus(err), duration)

	if err != nil {
		slog.WarnContext(ctx, "wecom request failed",
			slog.String("op", op),
			slog.String("url", redactURL(endpoint)),
			slog.Duration("duration", duration),
			slog.Any("error", err))
	}
	return err
}

func (c *WeComClient) roundTrip(ctx context.Context, op, method, endpoint string, body []byte, out weComReply) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return transportError(ProviderWeCom, op, fmt.Errorf("create http request: %w", redactURLError(err)))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ProviderWeCom, op, redactURLError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportError(ProviderWeCom, op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return providerError(ProviderWeCom, op, resp.StatusCode,
			truncate(string(payload), maxErrorBodyLength, truncationSuffix))
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return transportError(ProviderWeCom, op, fmt.Errorf("decode response: %w", err))
	}

	if status := out.status(); status.ErrCode != 0 {
		return providerError(ProviderWeCom, op, status.ErrCode, status.ErrMsg)
	}
	return nil
}

// redactURLError masks credentials in the URL that net/http embeds in its errors.
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{Op: urlErr.Op, URL: redactURL(urlErr.URL), Err: urlErr.Err}
	}
	return err
}
