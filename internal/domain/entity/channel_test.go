package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChannelConfig_Enabled(t *testing.T) {
	tests := []struct {
		name           string
		cfg            ChannelConfig
		wantEnterprise bool
		wantBot        bool
	}{
		{
			name:           "nothing configured",
			cfg:            ChannelConfig{},
			wantEnterprise: false,
			wantBot:        false,
		},
		{
			name:           "enterprise chat only",
			cfg:            ChannelConfig{CorpID: "ww123", AgentID: 1000002, Secret: "s3cret"},
			wantEnterprise: true,
			wantBot:        false,
		},
		{
			name:           "bot messaging only",
			cfg:            ChannelConfig{BotToken: "123:abc", ChatID: "42"},
			wantEnterprise: false,
			wantBot:        true,
		},
		{
			name:           "corp id without secret",
			cfg:            ChannelConfig{CorpID: "ww123"},
			wantEnterprise: false,
			wantBot:        false,
		},
		{
			name:           "both configured",
			cfg:            ChannelConfig{CorpID: "ww123", Secret: "s", BotToken: "t", ChatID: "c"},
			wantEnterprise: true,
			wantBot:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantEnterprise, tt.cfg.EnterpriseChatEnabled())
			assert.Equal(t, tt.wantBot, tt.cfg.BotMessagingEnabled())
		})
	}
}

func TestChannelConfig_Normalize(t *testing.T) {
	cfg := ChannelConfig{
		CorpID:   "  ww123\n",
		Secret:   "\ts3cret ",
		BotToken: " 123:abc ",
		ChatID:   " @channel ",
	}

	cfg.Normalize()

	assert.Equal(t, "ww123", cfg.CorpID)
	assert.Equal(t, "s3cret", cfg.Secret)
	assert.Equal(t, "123:abc", cfg.BotToken)
	assert.Equal(t, "@channel", cfg.ChatID)
}

func TestChannelConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ChannelConfig
		wantField string
	}{
		{name: "empty config is valid", cfg: ChannelConfig{}},
		{name: "negative agent id", cfg: ChannelConfig{AgentID: -1}, wantField: "agent_id"},
		{name: "corp id without secret", cfg: ChannelConfig{CorpID: "ww"}, wantField: "secret"},
		{name: "bot token without chat", cfg: ChannelConfig{BotToken: "t"}, wantField: "telegram_chat_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var validationErr *ValidationError
			if assert.ErrorAs(t, err, &validationErr) {
				assert.Equal(t, tt.wantField, validationErr.Field)
			}
		})
	}
}

func TestCachedToken_IsStale(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	token := NewCachedToken("tok", 7200, now)

	assert.Equal(t, now.Add(2*time.Hour), token.ExpiresAt)
	assert.False(t, token.IsStale(now))
	assert.False(t, token.IsStale(token.ExpiresAt.Add(-time.Nanosecond)))
	assert.True(t, token.IsStale(token.ExpiresAt), "a token is stale at its expiry instant")
	assert.True(t, token.IsStale(token.ExpiresAt.Add(time.Second)))
}

func TestTenant_Validate(t *testing.T) {
	valid := NewTenant(42, "octocat", 1)
	assert.NoError(t, valid.Validate())
	assert.Equal(t, int64(42), valid.AppID)
	assert.Empty(t, valid.BlockList)
	assert.False(t, valid.Captcha)

	missingLogin := &Tenant{AppID: 1}
	assert.Error(t, missingLogin.Validate())

	tooLong := NewTenant(1, "octocat", 1)
	tooLong.BlockList = string(make([]byte, maxBlockListLength+1))
	assert.Error(t, tooLong.Validate())

	badUTF8 := NewTenant(1, "octocat", 1)
	badUTF8.BlockList = string([]byte{0xff, 0xfe})
	assert.Error(t, badUTF8.Validate())
}
