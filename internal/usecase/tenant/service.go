package tenant

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"

	"pipehub/internal/domain/entity"
	"pipehub/internal/domain/tenantkey"
	"pipehub/internal/observability/metrics"
	"pipehub/internal/repository"
)

// Tenant lifecycle events recorded in metrics.
const (
	EventRegistered     = "registered"
	EventLogin          = "login"
	EventSettingsUpdate = "settings_updated"
	EventKeyReset       = "key_reset"
	EventChannelUpdate  = "channel_updated"
)

// GitHubUser is the identity returned by the GitHub user API.
type GitHubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// UserTenant is the tenant as shown to its owner: the editable settings plus
// the public key and the callback URL built from it.
type UserTenant struct {
	GitHubLogin string `json:"github_login"`
	GitHubID    int64  `json:"github_id"`
	BlockList   string `json:"block_list"`
	Captcha     bool   `json:"captcha"`
	AppKey      string `json:"app_key"`
	CallbackURL string `json:"callback_url"`
}

// SettingsInput holds the tenant fields a user may change.
type SettingsInput struct {
	BlockList string
	Captcha   bool
}

// AppIDGenerator returns a fresh random app id.
type AppIDGenerator func() (int64, error)

// RandomAppID draws an app id from crypto/rand. Any int64, negative included, is valid.
func RandomAppID() (int64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("generate app id: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// Service provides tenant account use cases.
type Service struct {
	Tenants  repository.TenantRepository
	Channels repository.ChannelRepository

	// Domain is the public base URL of the relay, used to build callback URLs.
	Domain string

	// NewAppID defaults to RandomAppID.
	NewAppID AppIDGenerator
}

func (s *Service) newAppID() (int64, error) {
	if s.NewAppID != nil {
		return s.NewAppID()
	}
	return RandomAppID()
}

// View builds the owner-facing representation of t.
func (s *Service) View(t *entity.Tenant) *UserTenant {
	key := tenantkey.Encode(t.AppID)
	return &UserTenant{
		GitHubLogin: t.GitHubLogin,
		GitHubID:    t.GitHubID,
		BlockList:   t.BlockList,
		Captcha:     t.Captcha,
		AppKey:      key,
		CallbackURL: strings.TrimRight(s.Domain, "/") + "/send/" + key,
	}
}

// Login finds the tenant owned by the GitHub account, registering a new one
// with a random app id on first sign-in. A changed GitHub login is stored.
func (s *Service) Login(ctx context.Context, user GitHubUser) (*entity.Tenant, error) {
	if user.ID == 0 || user.Login == "" {
		return nil, &entity.ValidationError{Field: "github_user", Message: "id and login are required"}
	}

	existing, err := s.Tenants.FindByGitHubID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("find tenant by github id: %w", err)
	}
	if existing != nil {
		if existing.GitHubLogin != user.Login {
			existing.GitHubLogin = user.Login
			if err := s.Tenants.Update(ctx, existing); err != nil {
				return nil, fmt.Errorf("update github login: %w", err)
			}
		}
		metrics.RecordTenantEvent(EventLogin)
		slog.InfoContext(ctx, "tenant signed in",
			slog.Int64("tenant_id", existing.ID),
			slog.String("github_login", user.Login))
		return existing, nil
	}

	appID, err := s.newAppID()
	if err != nil {
		return nil, err
	}
	t := entity.NewTenant(appID, user.Login, user.ID)
	if err := s.Tenants.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}

	metrics.RecordTenantEvent(EventRegistered)
	if n, err := s.Tenants.Count(ctx); err == nil {
		metrics.UpdateTenantsTotal(int(n))
	}
	slog.InfoContext(ctx, "tenant registered",
		slog.Int64("tenant_id", t.ID),
		slog.String("github_login", user.Login))
	return t, nil
}

func (s *Service) find(ctx context.Context, tenantID int64) (*entity.Tenant, error) {
	t, err := s.Tenants.FindByID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	if t == nil {
		return nil, ErrTenantNotFound
	}
	return t, nil
}

// Get returns the owner view of the tenant.
func (s *Service) Get(ctx context.Context, tenantID int64) (*UserTenant, error) {
	t, err := s.find(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return s.View(t), nil
}

// UpdateSettings replaces the block list and captcha flag.
func (s *Service) UpdateSettings(ctx context.Context, tenantID int64, in SettingsInput) (*UserTenant, error) {
	t, err := s.find(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	t.BlockList = in.BlockList
	t.Captcha = in.Captcha
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.Tenants.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("update tenant: %w", err)
	}

	metrics.RecordTenantEvent(EventSettingsUpdate)
	return s.View(t), nil
}

// ResetKey assigns a new random app id. The previous callback URL stops
// resolving as soon as the update commits.
func (s *Service) ResetKey(ctx context.Context, tenantID int64) (*UserTenant, error) {
	t, err := s.find(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	appID, err := s.newAppID()
	if err != nil {
		return nil, err
	}
	t.AppID = appID
	if err := s.Tenants.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("reset key: %w", err)
	}

	metrics.RecordTenantEvent(EventKeyReset)
	slog.InfoContext(ctx, "tenant key reset", slog.Int64("tenant_id", t.ID))
	return s.View(t), nil
}

// GetChannel returns the tenant's channel credentials, or a zero-valued
// configuration when none has been saved yet.
func (s *Service) GetChannel(ctx context.Context, tenantID int64) (*entity.ChannelConfig, error) {
	if _, err := s.find(ctx, tenantID); err != nil {
		return nil, err
	}

	cfg, err := s.Channels.FindByTenantID(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("find channel: %w", err)
	}
	if cfg == nil {
		return &entity.ChannelConfig{TenantID: tenantID}, nil
	}
	return cfg, nil
}

// UpdateChannel normalises, validates and stores the tenant's channel credentials.
func (s *Service) UpdateChannel(ctx context.Context, tenantID int64, cfg entity.ChannelConfig) error {
	if _, err := s.find(ctx, tenantID); err != nil {
		return err
	}

	cfg.ID = 0
	cfg.TenantID = tenantID
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.Channels.Upsert(ctx, &cfg); err != nil {
		return fmt.Errorf("upsert channel: %w", err)
	}

	metrics.RecordTenantEvent(EventChannelUpdate)
	slog.InfoContext(ctx, "channel configuration updated",
		slog.Int64("tenant_id", tenantID),
		slog.Bool("wecom", cfg.EnterpriseChatEnabled()),
		slog.Bool("telegram", cfg.BotMessagingEnabled()))
	return nil
}
