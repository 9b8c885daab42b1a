// Package http wires the relay's HTTP surface: routing, health check
// endpoints, metrics collection and the shared middleware chain.
package http

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"pipehub/internal/handler/http/respond"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"

	// poolBusyRatio marks the pool degraded once this share of the allowed
	// connections is checked out.
	poolBusyRatio = 0.8

	healthTimeout = 5 * time.Second
	readyTimeout  = 2 * time.Second
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Version   string                 `json:"version"`
	Checks    map[string]CheckStatus `json:"checks"`
}

// CheckStatus is one component's entry in HealthResponse.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// TokenCacheSizer reports the number of cached enterprise chat tokens.
type TokenCacheSizer interface {
	Len() int
}

// Breaker is a named circuit breaker whose state is reported by /health.
type Breaker interface {
	Name() string
	State() gobreaker.State
}

// HealthHandler serves GET /health.
//
// Only the database decides between 200 and 503: without it no tenant can be
// resolved. A busy pool or an open provider circuit is "degraded", because
// /send still answers (with success:false for the affected channel).
type HealthHandler struct {
	DB      *sql.DB
	Version string

	TokenCache TokenCacheSizer
	Breakers   []Breaker
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks := map[string]CheckStatus{"database": h.database(ctx)}
	if h.TokenCache != nil {
		checks["token_cache"] = CheckStatus{
			Status:  statusHealthy,
			Details: map[string]any{"entries": h.TokenCache.Len()},
		}
	}
	for _, b := range h.Breakers {
		checks["breaker:"+b.Name()] = breakerCheck(b.State())
	}

	resp := HealthResponse{
		Status:    statusHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   h.Version,
		Checks:    checks,
	}
	code := http.StatusOK
	if checks["database"].Status == statusUnhealthy {
		resp.Status = statusUnhealthy
		code = http.StatusServiceUnavailable
		slog.WarnContext(ctx, "health check failed",
			slog.String("database", checks["database"].Message))
	}

	w.Header().Set("Cache-Control", "no-store")
	respond.JSON(w, code, resp)
}

func (h *HealthHandler) database(ctx context.Context) CheckStatus {
	if h.DB == nil {
		return CheckStatus{Status: statusUnhealthy, Message: "not configured"}
	}
	if err := h.DB.PingContext(ctx); err != nil {
		return CheckStatus{Status: statusUnhealthy, Message: respond.SanitizeError(err)}
	}
	return poolCheck(h.DB.Stats())
}

// poolCheck grades connection pool pressure. An unlimited pool (MaxOpen 0)
// cannot run out and is always healthy.
func poolCheck(stats sql.DBStats) CheckStatus {
	details := map[string]any{
		"max_open":         stats.MaxOpenConnections,
		"open":             stats.OpenConnections,
		"in_use":           stats.InUse,
		"idle":             stats.Idle,
		"wait_count":       stats.WaitCount,
		"wait_duration_ms": stats.WaitDuration.Milliseconds(),
	}
	if stats.MaxOpenConnections == 0 {
		return CheckStatus{Status: statusHealthy, Details: details}
	}

	busy := float64(stats.InUse) / float64(stats.MaxOpenConnections)
	details["busy_ratio"] = busy
	if busy >= poolBusyRatio {
		return CheckStatus{
			Status:  statusDegraded,
			Message: "connection pool nearly exhausted",
			Details: details,
		}
	}
	return CheckStatus{Status: statusHealthy, Details: details}
}

func breakerCheck(state gobreaker.State) CheckStatus {
	status := statusHealthy
	if state != gobreaker.StateClosed {
		status = statusDegraded
	}
	return CheckStatus{Status: status, Details: map[string]any{"state": state.String()}}
}

// ReadyHandler serves GET /ready: 200 once the database answers a ping.
type ReadyHandler struct {
	DB *sql.DB
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if h.DB == nil {
		http.Error(w, "database not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.DB.PingContext(ctx); err != nil {
		http.Error(w, "database not ready: "+respond.SanitizeError(err), http.StatusServiceUnavailable)
		return
	}
	writeText(w, "ready")
}

// LiveHandler serves GET /live. It answers as long as the process can.
type LiveHandler struct{}

func (LiveHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	writeText(w, "alive")
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
