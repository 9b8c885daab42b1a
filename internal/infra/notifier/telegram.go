package notifier

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	ta "github.com/mymmrac/telego/telegoapi"

	"pipehub/internal/observability/metrics"
	"pipehub/internal/resilience/circuitbreaker"
)

// DefaultTelegramBaseURL is the public Telegram Bot API endpoint.
const DefaultTelegramBaseURL = "https://api.telegram.org"

const telegramOpSend = "send"

// TelegramConfig contains configuration for the Telegram client.
type TelegramConfig struct {
	// BaseURL is the Bot API server, without a trailing slash
	BaseURL string

	ConnectTimeout time.Duration
	Timeout        time.Duration

	// RequestsPerSecond and Burst limit outbound calls across all bots
	RequestsPerSecond float64
	Burst             int

	// Breaker overrides the circuit breaker tuning. Zero fields fall back to
	// circuitbreaker.ProviderConfig.
	Breaker circuitbreaker.Config
}

// DefaultTelegramConfig returns the production Telegram configuration.
// The Bot API allows roughly 30 messages per second per bot.
func DefaultTelegramConfig() TelegramConfig {
	return TelegramConfig{
		BaseURL:           DefaultTelegramBaseURL,
		ConnectTimeout:    DefaultConnectTimeout,
		Timeout:           DefaultRequestTimeout,
		RequestsPerSecond: 30,
		Burst:             30,
	}
}

// TelegramClient implements BotMessagingClient on top of telego.
// A bot handle is created per call since every tenant brings its own token.
type TelegramClient struct {
	config      TelegramConfig
	botOptions  []telego.BotOption
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
}

var _ BotMessagingClient = (*TelegramClient)(nil)

// NewTelegramClient creates a TelegramClient with its own HTTP client, rate limiter and circuit breaker.
func NewTelegramClient(config TelegramConfig) *TelegramClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultTelegramBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &TelegramClient{
		config: config,
		botOptions: []telego.BotOption{
			telego.WithAPIServer(config.BaseURL),
			telego.WithHTTPClient(NewHTTPClient(config.ConnectTimeout, config.Timeout)),
			telego.WithDiscardLogger(),
		},
		rateLimiter: NewRateLimiter(ProviderTelegram, config.RequestsPerSecond, config.Burst),
		breaker: circuitbreaker.NewWithFailurePredicate(
			breakerConfig(ProviderTelegram, config.Breaker), countsAsFailure),
	}
}

// Breaker exposes the client's circuit breaker for health reporting.
func (c *TelegramClient) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// Send posts message to creds.ChatID through sendMessage.
func (c *TelegramClient) Send(ctx context.Context, creds TelegramCredentials, message string) error {
	bot, err := telego.NewBot(creds.BotToken, c.botOptions...)
	if err != nil {
		return providerError(ProviderTelegram, telegramOpSend, 0, "invalid bot token")
	}

	if err := c.rateLimiter.Allow(ctx); err != nil {
		return transportError(ProviderTelegram, telegramOpSend, err)
	}

	params := &telego.SendMessageParams{
		ChatID: telegramChatID(creds.ChatID),
		Text:   message,
	}

	start := time.Now()
	_, err = c.breaker.Execute(func() (interface{}, error) {
		_, sendErr := bot.SendMessage(ctx, params)
		return nil, classifyTelegramError(sendErr, creds.BotToken)
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		err = transportError(ProviderTelegram, telegramOpSend, err)
	}
	duration := time.Since(start)
	metrics.RecordProviderCall(ProviderTelegram, telegramOpSend, callStatus(err), duration)

	if err != nil {
		slog.WarnContext(ctx, "telegram request failed",
			slog.String("chat_id", creds.ChatID),
			slog.Duration("duration", duration),
			slog.Any("error", err))
	}
	return err
}

// telegramChatID sends numeric ids as integers and anything else as a @username.
func telegramChatID(chatID string) telego.ChatID {
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		return telego.ChatID{ID: id}
	}
	if !strings.HasPrefix(chatID, "@") {
		chatID = "@" + chatID
	}
	return telego.ChatID{Username: chatID}
}

// classifyTelegramError separates Bot API rejections from transport failures.
// Transport errors embed the request URL, which contains the bot token.
func classifyTelegramError(err error, botToken string) error {
	if err == nil {
		return nil
	}
	var apiErr *ta.Error
	if errors.As(err, &apiErr) {
		return providerError(ProviderTelegram, telegramOpSend, apiErr.ErrorCode, apiErr.Description)
	}
	return transportError(ProviderTelegram, telegramOpSend, redactSecret(err, botToken))
}
