package sqlite

import (
	"time"

	"pipehub/internal/domain/entity"
	"pipehub/internal/observability/metrics"
)

type tenantModel struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	AppID       int64     `gorm:"column:app_id;not null"`
	GitHubLogin string    `gorm:"column:github_login;not null"`
	GitHubID    int64     `gorm:"column:github_id;not null"`
	BlockList   string    `gorm:"column:block_list;not null"`
	Captcha     bool      `gorm:"column:captcha;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;not null"`
	UpdatedAt   time.Time `gorm:"column:updated_at;not null"`
}

func (tenantModel) TableName() string {
	return "tenants"
}

func (m tenantModel) toEntity() *entity.Tenant {
	return &entity.Tenant{
		ID:          m.ID,
		AppID:       m.AppID,
		GitHubLogin: m.GitHubLogin,
		GitHubID:    m.GitHubID,
		BlockList:   m.BlockList,
		Captcha:     m.Captcha,
	}
}

type channelModel struct {
	ID               int64     `gorm:"column:id;primaryKey;autoIncrement"`
	TenantID         int64     `gorm:"column:tenant_id;not null"`
	CorpID           string    `gorm:"column:corp_id;not null"`
	AgentID          int64     `gorm:"column:agent_id;not null"`
	Secret           string    `gorm:"column:secret;not null"`
	TelegramBotToken string    `gorm:"column:telegram_bot_token;not null"`
	TelegramChatID   string    `gorm:"column:telegram_chat_id;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;not null"`
	UpdatedAt        time.Time `gorm:"column:updated_at;not null"`
}

func (channelModel) TableName() string {
	return "channels"
}

func (m channelModel) toEntity() *entity.ChannelConfig {
	return &entity.ChannelConfig{
		ID:       m.ID,
		TenantID: m.TenantID,
		CorpID:   m.CorpID,
		AgentID:  m.AgentID,
		Secret:   m.Secret,
		BotToken: m.TelegramBotToken,
		ChatID:   m.TelegramChatID,
	}
}

func observe(op string, start time.Time) {
	metrics.RecordDBQuery(op, time.Since(start))
}
