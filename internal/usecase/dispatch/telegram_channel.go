package dispatch

import (
	"context"

	"pipehub/internal/domain/entity"
	"pipehub/internal/infra/notifier"
)

// TelegramChannel delivers through a bot messaging client. It makes exactly one
// send per delivery.
type TelegramChannel struct {
	client notifier.BotMessagingClient
}

// NewTelegramChannel creates a TelegramChannel.
func NewTelegramChannel(client notifier.BotMessagingClient) *TelegramChannel {
	return &TelegramChannel{client: client}
}

// Name returns "telegram".
func (c *TelegramChannel) Name() string {
	return notifier.ProviderTelegram
}

// Enabled reports whether both a bot token and a chat id are configured.
func (c *TelegramChannel) Enabled(cfg *entity.ChannelConfig) bool {
	return cfg.BotMessagingEnabled()
}

// Send implements Channel.
func (c *TelegramChannel) Send(ctx context.Context, cfg *entity.ChannelConfig, d Delivery) (int, error) {
	return 1, c.client.Send(ctx, notifier.TelegramCredentialsFrom(cfg), d.Message)
}
