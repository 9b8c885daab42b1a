package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pipehub/internal/domain/entity"
	"pipehub/internal/infra/db"
	"pipehub/internal/repository"
)

type ChannelRepo struct{ db *db.SQLite }

func NewChannelRepo(sqlite *db.SQLite) repository.ChannelRepository {
	return &ChannelRepo{db: sqlite}
}

func (repo *ChannelRepo) FindByTenantID(ctx context.Context, tenantID int64) (*entity.ChannelConfig, error) {
	defer observe("FindChannelByTenantID", time.Now())

	var model channelModel
	err := repo.db.ReadTX(ctx, func(tx *db.Tx) error {
		return tx.Where("tenant_id = ?", tenantID).Take(&model).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByTenantID: %w", err)
	}
	return model.toEntity(), nil
}

func (repo *ChannelRepo) FindByAppID(ctx context.Context, appID int64) (*entity.ChannelConfig, error) {
	defer observe("FindChannelByAppID", time.Now())

	var model channelModel
	err := repo.db.ReadTX(ctx, func(tx *db.Tx) error {
		return tx.Select("channels.*").
			Joins("JOIN tenants ON tenants.id = channels.tenant_id").
			Where("tenants.app_id = ?", appID).
			Take(&model).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByAppID: %w", err)
	}
	return model.toEntity(), nil
}

func (repo *ChannelRepo) Upsert(ctx context.Context, cfg *entity.ChannelConfig) error {
	defer observe("UpsertChannel", time.Now())

	model := channelModel{
		TenantID:         cfg.TenantID,
		CorpID:           cfg.CorpID,
		AgentID:          cfg.AgentID,
		Secret:           cfg.Secret,
		TelegramBotToken: cfg.BotToken,
		TelegramChatID:   cfg.ChatID,
	}
	err := repo.db.WriteTX(ctx, func(tx *db.Tx) error {
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"corp_id", "agent_id", "secret",
				"telegram_bot_token", "telegram_chat_id", "updated_at",
			}),
		}).Create(&model).Error
		if err != nil {
			return err
		}
		// model.ID is not reliable after the conflict branch.
		var stored channelModel
		if err := tx.Select("id").Where("tenant_id = ?", cfg.TenantID).Take(&stored).Error; err != nil {
			return err
		}
		model.ID = stored.ID
		return nil
	})
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	cfg.ID = model.ID
	return nil
}
