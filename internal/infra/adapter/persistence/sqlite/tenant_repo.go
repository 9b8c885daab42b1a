package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pipehub/internal/domain/entity"
	"pipehub/internal/infra/db"
	"pipehub/internal/repository"
)

type TenantRepo struct{ db *db.SQLite }

func NewTenantRepo(sqlite *db.SQLite) repository.TenantRepository {
	return &TenantRepo{db: sqlite}
}

func (repo *TenantRepo) findOne(ctx context.Context, op, column string, arg any) (*entity.Tenant, error) {
	defer observe(op, time.Now())

	var model tenantModel
	err := repo.db.ReadTX(ctx, func(tx *db.Tx) error {
		return tx.Where(column+" = ?", arg).Take(&model).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return model.toEntity(), nil
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
	err := repo.db.ReadTX(ctx, func(tx *db.Tx) error {
		return tx.Model(&tenantModel{}).Count(&n).Error
	})
	if err != nil {
		return 0, fmt.Errorf("Count: %w", err)
	}
	return n, nil
}

func (repo *TenantRepo) Create(ctx context.Context, tenant *entity.Tenant) error {
	defer observe("CreateTenant", time.Now())

	model := tenantModel{
		AppID:       tenant.AppID,
		GitHubLogin: tenant.GitHubLogin,
		GitHubID:    tenant.GitHubID,
		BlockList:   tenant.BlockList,
		Captcha:     tenant.Captcha,
	}
	err := repo.db.WriteTX(ctx, func(tx *db.Tx) error {
		return tx.Create(&model).Error
	})
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	tenant.ID = model.ID
	return nil
}

func (repo *TenantRepo) Update(ctx context.Context, tenant *entity.Tenant) error {
	defer observe("UpdateTenant", time.Now())

	var affected int64
	err := repo.db.WriteTX(ctx, func(tx *db.Tx) error {
		res := tx.Model(&tenantModel{}).
			Where("id = ?", tenant.ID).
			Updates(map[string]any{
				"app_id":       tenant.AppID,
				"github_login": tenant.GitHubLogin,
				"block_list":   tenant.BlockList,
				"captcha":      tenant.Captcha,
				"updated_at":   time.Now().UTC(),
			})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return fmt.Errorf("Update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("Update: %w", entity.ErrNotFound)
	}
	return nil
}
