package repository

import (
	"context"

	"pipehub/internal/domain/entity"
)

// ChannelRepository persists per-tenant channel credentials, at most one row per tenant.
// Lookups return (nil, nil) when no row matches.
type ChannelRepository interface {
	FindByTenantID(ctx context.Context, tenantID int64) (*entity.ChannelConfig, error)
	// FindByAppID resolves the channel configuration through the owning tenant's app id.
	FindByAppID(ctx context.Context, appID int64) (*entity.ChannelConfig, error)
	// Upsert inserts or replaces the row for cfg.TenantID and sets cfg.ID.
	Upsert(ctx context.Context, cfg *entity.ChannelConfig) error
}
