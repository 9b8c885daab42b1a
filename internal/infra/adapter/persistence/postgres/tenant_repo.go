package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pipehub/internal/domain/entity"
	"pipehub/internal/observability/metrics"
	"pipehub/internal/repository"
)

type TenantRepo struct{ db Querier }

func NewTenantRepo(db Querier) repository.TenantRepository {
	return &TenantRepo{db: db}
}

const tenantColumns = `id, app_id, github_login, github_id, block_list, captcha`

func (repo *TenantRepo) findOne(ctx context.Context, op, where string, arg any) (*entity.Tenant, error) {
	defer observe(op, time.Now())

	query := `
SELECT ` + tenantColumns + `
FROM tenants
WHERE ` + where + ` = $1
LIMIT 1`
	var tenant entity.Tenant
	err := repo.db.QueryRowContext(ctx, query, arg).Scan(
		&tenant.ID, &tenant.AppID, &tenant.GitHubLogin, &tenant.GitHubID,
		&tenant.BlockList, &tenant.Captcha,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &tenant, nil
}

func (repo *TenantRepo) FindByID(ctx context.Context, id int64) (*entity.Tenant, error) {
	return repo.findOne(ctx, "FindByID", "id", id)
}

func (repo *TenantRepo) FindByAppID(ctx context.Context, appID int64) (*entity.Tenant, error) {
	return repo.findOne(ctx, "FindByAppID", "app_id", appID)
}

func (repo *TenantRepo) FindByGitHubID(ctx context.Context, githubID int64) (*entity.Tenant, error) {
	return repo.findOne(ctx, "FindByGitHubID", "github_id", githubID)
}

func (repo *TenantRepo) Count(ctx context.Context) (int64, error) {
	defer observe("CountTenants", time.Now())

	var n int64
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&n); err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

func (repo *TenantRepo) Create(ctx context.Context, tenant *entity.Tenant) error {
	defer observe("CreateTenant", time.Now())

	const query = `
INSERT INTO tenants (app_id, github_login, github_id, block_list, captcha)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`
	err := repo.db.QueryRowContext(ctx, query,
		tenant.AppID, tenant.GitHubLogin, tenant.GitHubID, tenant.BlockList, tenant.Captcha,
	).Scan(&tenant.ID)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (repo *TenantRepo) Update(ctx context.Context, tenant *entity.Tenant) error {
	defer observe("UpdateTenant", time.Now())

	const query = `
UPDATE tenants
SET app_id = $1, github_login = $2, block_list = $3, captcha = $4, updated_at = now()
WHERE id = $5`
	res, err := repo.db.ExecContext(ctx, query,
		tenant.AppID, tenant.GitHubLogin, tenant.BlockList, tenant.Captcha, tenant.ID,
	)
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Update: RowsAffected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordDBQuery(op, time.Since(start))
}
