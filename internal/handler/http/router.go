package http

import (
	"log/slog"
	"net/http"
	"time"

	"pipehub/internal/handler/http/auth"
	"pipehub/internal/handler/http/middleware"
	"pipehub/internal/handler/http/requestid"
	"pipehub/internal/handler/http/send"
	"pipehub/internal/handler/http/user"
	"pipehub/internal/observability/tracing"
)

// RouterConfig holds everything the HTTP surface is built from.
type RouterConfig struct {
	Logger *slog.Logger

	Dispatcher send.Dispatcher
	Tenants    user.Service
	OAuth      *auth.OAuthHandler
	Sessions   *auth.SessionManager

	Health *HealthHandler
	Ready  *ReadyHandler

	// LoginURL is returned in the Location header of 401 responses.
	LoginURL string

	// WebDomain is the settings UI origin allowed by CORS.
	WebDomain string

	// StaticDir, when set, is served at /.
	StaticDir string

	MaxBodyBytes int64

	// LoginRateLimit caps OAuth requests per client IP per minute. Zero disables it.
	LoginRateLimit int

	// ClientIP attributes requests to a client for the login rate limit.
	// Nil uses the TCP peer address.
	ClientIP middleware.IPExtractor
}

// NewRouter registers every route and wraps the mux in the middleware chain.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	send.Register(mux, cfg.Dispatcher)
	user.Register(mux, cfg.Tenants, cfg.Sessions, cfg.LoginURL)

	var login, callback http.Handler = http.HandlerFunc(cfg.OAuth.Login), http.HandlerFunc(cfg.OAuth.Callback)
	if cfg.LoginRateLimit > 0 {
		limiter := NewRateLimiter(cfg.LoginRateLimit, time.Minute, cfg.ClientIP)
		login, callback = limiter.Limit(login), limiter.Limit(callback)
	}
	mux.Handle("GET /login", login)
	mux.Handle("GET /callback", callback)

	mux.Handle("GET /health", cfg.Health)
	mux.Handle("GET /ready", cfg.Ready)
	mux.Handle("GET /live", &LiveHandler{})
	mux.Handle("GET /metrics", MetricsHandler())

	if cfg.StaticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(cfg.StaticDir)))
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	// Apply in reverse order (innermost to outermost):
	// CORS → Request ID → Tracing → Recovery → Logging → Body Size Limit → Metrics
	var h http.Handler = mux
	h = MetricsMiddleware(h)
	h = LimitRequestBody(maxBody)(h)
	h = Logging(logger)(h)
	h = Recover(logger)(h)
	h = tracing.Middleware(h)
	h = requestid.Middleware(h)
	h = middleware.CORS(corsConfig(cfg.WebDomain, logger))(h)
	return h
}

func corsConfig(webDomain string, logger *slog.Logger) middleware.CORSConfig {
	c := middleware.DefaultCORSConfig(webDomain)
	c.Logger = logger
	return c
}
