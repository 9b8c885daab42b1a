package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipehub/internal/domain/entity"
	"pipehub/internal/usecase/tenant"
)

type stubAuthenticator struct {
	user  tenant.GitHubUser
	err   error
	codes []string
}

func (s *stubAuthenticator) AuthorizeURL(state string) string {
	return "https://github.com/login/oauth/authorize?state=" + state
}

func (s *stubAuthenticator) Authenticate(_ context.Context, code string) (tenant.GitHubUser, error) {
	s.codes = append(s.codes, code)
	return s.user, s.err
}

type stubTenantLogin struct {
	tenant *entity.Tenant
	err    error
	users  []tenant.GitHubUser
}

func (s *stubTenantLogin) Login(_ context.Context, user tenant.GitHubUser) (*entity.Tenant, error) {
	s.users = append(s.users, user)
	return s.tenant, s.err
}

func newOAuthHandler(a *stubAuthenticator, l *stubTenantLogin) *OAuthHandler {
	return &OAuthHandler{
		Auth:      a,
		Tenants:   l,
		Sessions:  newTestManager(time.Now()),
		WebDomain: "https://web.example.com/",
		NewState:  func() (string, error) { return "state-123", nil },
	}
}

func callbackRequest(query, cookieState string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/callback?"+query, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: StateCookie, Value: cookieState})
	}
	return req
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

/* ───────── Login ───────── */

func TestOAuthHandler_Login(t *testing.T) {
	// Arrange
	h := newOAuthHandler(&stubAuthenticator{}, &stubTenantLogin{})
	rec := httptest.NewRecorder()

	// Act
	h.Login(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	// Assert
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://github.com/login/oauth/authorize?state=state-123", rec.Header().Get("Location"))
	state := findCookie(rec, StateCookie)
	require.NotNil(t, state)
	assert.Equal(t, "state-123", state.Value)
	assert.True(t, state.HttpOnly)
}

func TestRandomState_Unique(t *testing.T) {
	a, err := randomState()
	require.NoError(t, err)
	b, err := randomState()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43)
}

/* ───────── Callback ───────── */

func TestOAuthHandler_Callback_Success(t *testing.T) {
	// Arrange
	a := &stubAuthenticator{user: tenant.GitHubUser{ID: 1001, Login: "octocat"}}
	l := &stubTenantLogin{tenant: &entity.Tenant{ID: 5, GitHubLogin: "octocat"}}
	h := newOAuthHandler(a, l)
	rec := httptest.NewRecorder()

	// Act
	h.Callback(rec, callbackRequest("state=state-123&code=abc", "state-123"))

	// Assert
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://web.example.com/#/user", rec.Header().Get("Location"))
	assert.Equal(t, []string{"abc"}, a.codes)
	require.Len(t, l.users, 1)
	assert.Equal(t, int64(1001), l.users[0].ID)

	session := findCookie(rec, SessionCookie)
	require.NotNil(t, session)
	parsed, err := h.Sessions.Parse(session.Value)
	require.NoError(t, err)
	assert.Equal(t, Session{TenantID: 5, Login: "octocat"}, parsed)
}

func TestOAuthHandler_Callback_StateMismatch(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		cookieState string
	}{
		{"different state", "state=evil&code=abc", "state-123"},
		{"missing cookie", "state=state-123&code=abc", ""},
		{"missing query state", "code=abc", "state-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			a := &stubAuthenticator{}
			h := newOAuthHandler(a, &stubTenantLogin{})
			rec := httptest.NewRecorder()

			// Act
			h.Callback(rec, callbackRequest(tt.query, tt.cookieState))

			// Assert
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "https://web.example.com/", rec.Header().Get("Location"))
			assert.Empty(t, a.codes, "code must not be exchanged")
			assert.Nil(t, findCookie(rec, SessionCookie))
		})
	}
}

func TestOAuthHandler_Callback_Failures(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		authErr    error
		loginErr   error
		wantStatus int
	}{
		{"missing code", "state=state-123", nil, nil, http.StatusBadRequest},
		{"exchange fails", "state=state-123&code=abc", errors.New("client_secret=s3cr3t rejected"), nil, http.StatusBadGateway},
		{"tenant store fails", "state=state-123&code=abc", nil, errors.New("db down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			a := &stubAuthenticator{user: tenant.GitHubUser{ID: 1, Login: "x"}, err: tt.authErr}
			l := &stubTenantLogin{tenant: &entity.Tenant{ID: 1}, err: tt.loginErr}
			h := newOAuthHandler(a, l)
			rec := httptest.NewRecorder()

			// Act
			h.Callback(rec, callbackRequest(tt.query, "state-123"))

			// Assert
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.NotContains(t, rec.Body.String(), "s3cr3t")
			assert.Nil(t, findCookie(rec, SessionCookie))
		})
	}
}
