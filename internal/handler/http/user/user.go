// Package user serves the signed-in tenant's settings API.
package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"pipehub/internal/domain/entity"
	"pipehub/internal/handler/http/auth"
	"pipehub/internal/handler/http/respond"
	"pipehub/internal/usecase/tenant"
)

// Service is the tenant use case the settings API calls.
type Service interface {
	Get(ctx context.Context, tenantID int64) (*tenant.UserTenant, error)
	UpdateSettings(ctx context.Context, tenantID int64, in tenant.SettingsInput) (*tenant.UserTenant, error)
	ResetKey(ctx context.Context, tenantID int64) (*tenant.UserTenant, error)
	GetChannel(ctx context.Context, tenantID int64) (*entity.ChannelConfig, error)
	UpdateChannel(ctx context.Context, tenantID int64, cfg entity.ChannelConfig) error
}

// Register registers the settings routes with the given mux. Every route
// requires a session; requests without one get 401 and the login URL.
func Register(mux *http.ServeMux, svc Service, sessions *auth.SessionManager, loginURL string) {
	protect := auth.RequireSession(sessions, loginURL)

	mux.Handle("GET /user", protect(GetHandler{svc}))
	mux.Handle("PUT /user", protect(UpdateHandler{svc}))
	mux.Handle("POST /user/reset_key", protect(ResetKeyHandler{svc}))
	mux.Handle("GET /wechat", protect(GetChannelHandler{svc}))
	mux.Handle("PUT /wechat", protect(UpdateChannelHandler{svc}))
}

// tenantID returns the id of the signed-in tenant. RequireSession guarantees a session.
func tenantID(r *http.Request) int64 {
	s, _ := auth.SessionFromContext(r.Context())
	return s.TenantID
}

// writeError maps tenant use case errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *entity.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respond.SafeError(w, http.StatusBadRequest, err)
	case errors.Is(err, entity.ErrNotFound):
		// The session outlived its tenant.
		respond.SafeError(w, http.StatusNotFound, err)
	default:
		respond.SafeError(w, http.StatusInternalServerError, err)
	}
}

type GetHandler struct{ Svc Service }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.Get(r.Context(), tenantID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

type UpdateHandler struct{ Svc Service }

func (h UpdateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BlockList string `json:"block_list"`
		Captcha   bool   `json:"captcha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	out, err := h.Svc.UpdateSettings(r.Context(), tenantID(r), tenant.SettingsInput{
		BlockList: req.BlockList,
		Captcha:   req.Captcha,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

type ResetKeyHandler struct{ Svc Service }

func (h ResetKeyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	out, err := h.Svc.ResetKey(r.Context(), tenantID(r))
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}
