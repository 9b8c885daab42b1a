package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireSession(t *testing.T) {
	m := newTestManager(time.Now())
	valid, err := m.Issue(9, "octocat")
	require.NoError(t, err)

	var got Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := SessionFromContext(r.Context())
		require.True(t, ok)
		got = s
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireSession(m, "https://relay.example.com/login")(next)

	tests := []struct {
		name         string
		cookie       string
		wantStatus   int
		wantLocation string
	}{
		{"valid session", valid, http.StatusOK, ""},
		{"no cookie", "", http.StatusUnauthorized, "https://relay.example.com/login"},
		{"tampered cookie", valid + "x", http.StatusUnauthorized, "https://relay.example.com/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			got = Session{}
			req := httptest.NewRequest(http.MethodGet, "/user", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			// Act
			handler.ServeHTTP(rec, req)

			// Assert
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, int64(9), got.TenantID)
			} else {
				assert.Contains(t, rec.Body.String(), "unauthorized")
			}
		})
	}
}

func TestSessionFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := SessionFromContext(req.Context())

	assert.False(t, ok)
}
