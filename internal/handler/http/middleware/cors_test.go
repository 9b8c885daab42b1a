package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestWhitelistValidator(t *testing.T) {
	v := NewWhitelistValidator([]string{"https://Web.Example.com/", " ", "http://localhost:3000"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"https://web.example.com", true},
		{"HTTPS://WEB.EXAMPLE.COM/", true},
		{"http://localhost:3000", true},
		{"https://evil.example.com", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, v.IsAllowed(tt.origin))
		})
	}
	assert.Equal(t, []string{"https://web.example.com", "http://localhost:3000"}, v.GetAllowedOrigins())
}

func TestCORS_NoOrigin(t *testing.T) {
	// Arrange
	var called bool
	h := CORS(DefaultCORSConfig("https://web.example.com"))(okHandler(&called))
	rec := httptest.NewRecorder()

	// Act
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/user", nil))

	// Assert
	assert.True(t, called)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_AllowedOrigin(t *testing.T) {
	// Arrange
	var called bool
	h := CORS(DefaultCORSConfig("https://web.example.com"))(okHandler(&called))
	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.Header.Set("Origin", "https://web.example.com")
	rec := httptest.NewRecorder()

	// Act
	h.ServeHTTP(rec, req)

	// Assert
	assert.True(t, called)
	assert.Equal(t, "https://web.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	// Arrange
	var called bool
	h := CORS(DefaultCORSConfig("https://web.example.com"))(okHandler(&called))
	req := httptest.NewRequest(http.MethodPut, "/wechat", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()

	// Act
	h.ServeHTTP(rec, req)

	// Assert
	assert.True(t, called, "the browser enforces the policy, the handler still runs")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	// Arrange
	var called bool
	h := CORS(DefaultCORSConfig("https://web.example.com"))(okHandler(&called))
	req := httptest.NewRequest(http.MethodOptions, "/wechat", nil)
	req.Header.Set("Origin", "https://web.example.com")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	rec := httptest.NewRecorder()

	// Act
	h.ServeHTTP(rec, req)

	// Assert
	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, POST, PUT, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type, X-Request-ID", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
}
