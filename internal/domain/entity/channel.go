package entity

import (
	"strings"
	"time"
)

// ChannelConfig holds a tenant's downstream channel credentials.
// An empty credential set disables that channel for the tenant.
type ChannelConfig struct {
	ID       int64
	TenantID int64

	// Enterprise chat (WeCom) credentials
	CorpID  string
	AgentID int64
	Secret  string

	// Bot messaging (Telegram) credentials
	BotToken string
	ChatID   string
}

// EnterpriseChatEnabled reports whether enterprise chat credentials are configured.
func (c *ChannelConfig) EnterpriseChatEnabled() bool {
	return c.CorpID != "" && c.Secret != ""
}

// BotMessagingEnabled reports whether bot messaging credentials are configured.
func (c *ChannelConfig) BotMessagingEnabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// Normalize trims surrounding whitespace from credentials pasted into the settings form.
func (c *ChannelConfig) Normalize() {
	c.CorpID = strings.TrimSpace(c.CorpID)
	c.Secret = strings.TrimSpace(c.Secret)
	c.BotToken = strings.TrimSpace(c.BotToken)
	c.ChatID = strings.TrimSpace(c.ChatID)
}

// Validate checks the channel configuration before it is stored.
func (c *ChannelConfig) Validate() error {
	if c.AgentID < 0 {
		return &ValidationError{Field: "agent_id", Message: "agent_id must be non-negative"}
	}
	if c.CorpID != "" && c.Secret == "" {
		return &ValidationError{Field: "secret", Message: "secret is required when corp_id is set"}
	}
	if c.BotToken != "" && c.ChatID == "" {
		return &ValidationError{Field: "telegram_chat_id", Message: "telegram_chat_id is required when telegram_bot_token is set"}
	}
	return nil
}

// CachedToken is an enterprise chat access token together with its absolute expiry.
type CachedToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// NewCachedToken builds a token that expires expiresIn seconds after now.
func NewCachedToken(accessToken string, expiresIn int64, now time.Time) CachedToken {
	return CachedToken{
		AccessToken: accessToken,
		ExpiresAt:   now.Add(time.Duration(expiresIn) * time.Second),
	}
}

// IsStale reports whether the token must be refreshed before use.
func (t CachedToken) IsStale(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
