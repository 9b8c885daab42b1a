package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pipehub/internal/domain/entity"
	"pipehub/internal/repository"
)

type ChannelRepo struct{ db Querier }

func NewChannelRepo(db Querier) repository.ChannelRepository {
	return &ChannelRepo{db: db}
}

func scanChannel(row *sql.Row) (*entity.ChannelConfig, error) {
	var cfg entity.ChannelConfig
	err := row.Scan(
		&cfg.ID, &cfg.TenantID, &cfg.CorpID, &cfg.AgentID, &cfg.Secret,
		&cfg.BotToken, &cfg.ChatID,
	)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (repo *ChannelRepo) FindByTenantID(ctx context.Context, tenantID int64) (*entity.ChannelConfig, error) {
	defer observe("FindChannelByTenantID", time.Now())

	const query = `
SELECT id, tenant_id, corp_id, agent_id, secret, telegram_bot_token, telegram_chat_id
FROM channels
WHERE tenant_id = $1
LIMIT 1`
	cfg, err := scanChannel(repo.db.QueryRowContext(ctx, query, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByTenantID: %w", err)
	}
	return cfg, nil
}

func (repo *ChannelRepo) FindByAppID(ctx context.Context, appID int64) (*entity.ChannelConfig, error) {
	defer observe("FindChannelByAppID", time.Now())

	const query = `
SELECT c.id, c.tenant_id, c.corp_id, c.agent_id, c.secret, c.telegram_bot_token, c.telegram_chat_id
FROM channels c
JOIN tenants t ON t.id = c.tenant_id
WHERE t.app_id = $1
LIMIT 1`
	cfg, err := scanChannel(repo.db.QueryRowContext(ctx, query, appID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByAppID: %w", err)
	}
	return cfg, nil
}

func (repo *ChannelRepo) Upsert(ctx context.Context, cfg *entity.ChannelConfig) error {
	defer observe("UpsertChannel", time.Now())

	const query = `
INSERT INTO channels (tenant_id, corp_id, agent_id, secret, telegram_bot_token, telegram_chat_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (tenant_id) DO UPDATE SET
    corp_id = EXCLUDED.corp_id,
    agent_id = EXCLUDED.agent_id,
    secret = EXCLUDED.secret,
    telegram_bot_token = EXCLUDED.telegram_bot_token,
    telegram_chat_id = EXCLUDED.telegram_chat_id,
    updated_at = now()
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		cfg.TenantID, cfg.CorpID, cfg.AgentID, cfg.Secret, cfg.BotToken, cfg.ChatID,
	).Scan(&cfg.ID)
	if err != nil {
		return fmt.Errorf("Upsert: %w", err)
	}
	return nil
}
