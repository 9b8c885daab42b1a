package repository

import (
	"context"

	"pipehub/internal/domain/entity"
)

// TenantRepository persists tenants. Lookups return (nil, nil) when no row matches.
type TenantRepository interface {
	FindByID(ctx context.Context, id int64) (*entity.Tenant, error)
	FindByAppID(ctx context.Context, appID int64) (*entity.Tenant, error)
	FindByGitHubID(ctx context.Context, githubID int64) (*entity.Tenant, error)
	Count(ctx context.Context) (int64, error)
	// Create inserts tenant and sets tenant.ID.
	Create(ctx context.Context, tenant *entity.Tenant) error
	Update(ctx context.Context, tenant *entity.Tenant) error
}
