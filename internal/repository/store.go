// Package repository defines the persistence ports for tenants and their
// channel configuration. Implementations live under infra/adapter/persistence.
package repository

import (
	"context"

	"pipehub/internal/domain/entity"
)

// Store composes the tenant and channel repositories into the read port used
// when relaying messages.
type Store struct {
	Tenants  TenantRepository
	Channels ChannelRepository
}

// NewStore creates a Store.
func NewStore(tenants TenantRepository, channels ChannelRepository) *Store {
	return &Store{Tenants: tenants, Channels: channels}
}

// FindTenantByAppID returns the tenant owning appID, or nil.
func (s *Store) FindTenantByAppID(ctx context.Context, appID int64) (*entity.Tenant, error) {
	return s.Tenants.FindByAppID(ctx, appID)
}

// FindChannelByAppID returns the channel configuration of the tenant owning appID, or nil.
func (s *Store) FindChannelByAppID(ctx context.Context, appID int64) (*entity.ChannelConfig, error) {
	return s.Channels.FindByAppID(ctx, appID)
}
