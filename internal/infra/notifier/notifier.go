// Package notifier provides clients for the outbound messaging providers a
// tenant message is relayed to.
//
// Two provider shapes are supported: an enterprise chat API that needs a
// short-lived access token obtained from corp credentials (WeCom), and a bot
// messaging API authenticated by a static bot token (Telegram). Clients are
// safe for concurrent use and hold no per-tenant state; token caching and
// retries belong to the caller.
package notifier

import (
	"context"

	"pipehub/internal/domain/entity"
)

// Provider names used in errors, logs, metrics and circuit breaker names.
const (
	ProviderWeCom    = "wecom"
	ProviderTelegram = "telegram"
)

// WeComCredentials identifies a tenant's enterprise chat application.
type WeComCredentials struct {
	CorpID  string
	AgentID int64
	Secret  string
}

// TelegramCredentials identifies a tenant's bot and target chat.
type TelegramCredentials struct {
	BotToken string
	ChatID   string
}

// WeComCredentialsFrom extracts enterprise chat credentials from a channel configuration.
func WeComCredentialsFrom(cfg *entity.ChannelConfig) WeComCredentials {
	return WeComCredentials{CorpID: cfg.CorpID, AgentID: cfg.AgentID, Secret: cfg.Secret}
}

// TelegramCredentialsFrom extracts bot messaging credentials from a channel configuration.
func TelegramCredentialsFrom(cfg *entity.ChannelConfig) TelegramCredentials {
	return TelegramCredentials{BotToken: cfg.BotToken, ChatID: cfg.ChatID}
}

// EnterpriseChatClient talks to a token-authenticated enterprise chat API.
type EnterpriseChatClient interface {
	// FetchToken exchanges corp credentials for a fresh access token.
	FetchToken(ctx context.Context, creds WeComCredentials) (entity.CachedToken, error)

	// Send delivers a text message using a previously fetched access token.
	// An empty toParty addresses every member of the application.
	Send(ctx context.Context, creds WeComCredentials, accessToken, message, toParty string) error
}

// BotMessagingClient talks to a bot-token-authenticated messaging API.
type BotMessagingClient interface {
	// Send delivers a text message to the configured chat.
	Send(ctx context.Context, creds TelegramCredentials, message string) error
}
