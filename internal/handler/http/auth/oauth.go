package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"pipehub/internal/domain/entity"
	"pipehub/internal/handler/http/respond"
	"pipehub/internal/usecase/tenant"
)

// StateCookie holds the OAuth state between /login and /callback.
const StateCookie = "oauth_state"

const stateTTL = 10 * time.Minute

// Authenticator performs the GitHub OAuth exchange.
type Authenticator interface {
	AuthorizeURL(state string) string
	Authenticate(ctx context.Context, code string) (tenant.GitHubUser, error)
}

// TenantLogin finds or registers the tenant owned by a GitHub account.
type TenantLogin interface {
	Login(ctx context.Context, user tenant.GitHubUser) (*entity.Tenant, error)
}

// OAuthHandler serves GET /login and GET /callback.
type OAuthHandler struct {
	Auth     Authenticator
	Tenants  TenantLogin
	Sessions *SessionManager

	// WebDomain is the origin of the settings UI the callback redirects to.
	WebDomain string

	// NewState defaults to a random 32-byte token.
	NewState func() (string, error)
}

func randomState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Login stores a random state cookie and redirects to GitHub.
func (h *OAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	newState := h.NewState
	if newState == nil {
		newState = randomState
	}
	state, err := newState()
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.Sessions.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.Auth.AuthorizeURL(state), http.StatusFound)
}

// Callback completes the login started by Login.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() { RecordAuthDuration(time.Since(start).Seconds()) }()

	ctx := r.Context()
	home := strings.TrimRight(h.WebDomain, "/")

	// The state cookie is single use.
	http.SetCookie(w, &http.Cookie{Name: StateCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(StateCookie)
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(state)) != 1 {
		RecordAuthRequest("state_mismatch")
		slog.WarnContext(ctx, "oauth state mismatch")
		http.Redirect(w, r, home+"/", http.StatusFound)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		RecordAuthRequest("exchange_failed")
		respond.JSON(w, http.StatusBadRequest, map[string]string{"error": "missing code"})
		return
	}

	user, err := h.Auth.Authenticate(ctx, code)
	if err != nil {
		RecordAuthRequest("exchange_failed")
		slog.ErrorContext(ctx, "github authentication failed",
			slog.String("error", respond.SanitizeError(err)))
		respond.JSON(w, http.StatusBadGateway, map[string]string{"error": "github authentication failed"})
		return
	}

	t, err := h.Tenants.Login(ctx, user)
	if err != nil {
		RecordAuthRequest("login_failed")
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	token, err := h.Sessions.Issue(t.ID, t.GitHubLogin)
	if err != nil {
		RecordAuthRequest("login_failed")
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	RecordAuthRequest("success")
	h.Sessions.SetCookie(w, token)
	http.Redirect(w, r, home+"/#/user", http.StatusFound)
}
