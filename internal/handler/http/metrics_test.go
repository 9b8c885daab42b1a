package http

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipehub/internal/observability/metrics"
)

func TestMetricsMiddleware_PathNormalization(t *testing.T) {
	// Reset metrics before test
	metrics.HTTPRequestsTotal.Reset()
	metrics.HTTPRequestDuration.Reset()

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}))

	tests := []struct {
		name         string
		method       string
		path         string
		expectedPath string
	}{
		{"send with key", http.MethodPost, "/send/3yQ7mZ", "/send/:key"},
		{"send with other key", http.MethodPost, "/send/9abcDEF", "/send/:key"},
		{"send with query", http.MethodGet, "/send/3yQ7mZ?text=hi", "/send/:key"},
		{"user", http.MethodGet, "/user", "/user"},
		{"reset key", http.MethodPost, "/user/reset_key", "/user/reset_key"},
		{"health", http.MethodGet, "/health", "/health"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}

	// Two keys and a query collapse into one series.
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/send/:key", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/send/:key", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/user", "200")))
}

func TestMetricsMiddleware_StatusCodes(t *testing.T) {
	metrics.HTTPRequestsTotal.Reset()

	tests := []struct {
		name   string
		status int
	}{
		{"ok", http.StatusOK},
		{"no content", http.StatusNoContent},
		{"bad request", http.StatusBadRequest},
		{"unauthorized", http.StatusUnauthorized},
		{"internal error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wechat", nil))

			got := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/wechat", strconv.Itoa(tt.status)))
			assert.Equal(t, 1.0, got)
		})
	}
}

func TestMetricsMiddleware_InFlightReturnsToZero(t *testing.T) {
	// Arrange
	var during float64
	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(metrics.HTTPRequestsInFlight)
	}))
	before := testutil.ToFloat64(metrics.HTTPRequestsInFlight)

	// Act
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/live", nil))

	// Assert
	assert.Equal(t, before+1, during)
	assert.Equal(t, before, testutil.ToFloat64(metrics.HTTPRequestsInFlight))
}

func TestMetricsMiddleware_Sizes(t *testing.T) {
	metrics.HTTPRequestSize.Reset()
	metrics.HTTPResponseSize.Reset()

	handler := MetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte(`{"success":true,"error_message":""}`))
	}))

	req := httptest.NewRequest(http.MethodPost, "/send/abc", strings.NewReader("hello world"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1, testutil.CollectAndCount(metrics.HTTPRequestSize))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.HTTPResponseSize))
}

func TestMetricsHandler(t *testing.T) {
	// Arrange
	metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200").Inc()
	rec := httptest.NewRecorder()

	// Act
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "pipehub_http_requests_total")
	assert.Contains(t, body, "pipehub_http_requests_in_flight")
}
