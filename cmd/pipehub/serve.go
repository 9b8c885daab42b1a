package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"

	"pipehub/internal/config"
	hhttp "pipehub/internal/handler/http"
	"pipehub/internal/handler/http/auth"
	"pipehub/internal/handler/http/middleware"
	"pipehub/internal/infra/db"
	"pipehub/internal/infra/github"
	"pipehub/internal/infra/notifier"
	"pipehub/internal/infra/tokencache"
	"pipehub/internal/observability/logging"
	"pipehub/internal/observability/metrics"
	"pipehub/internal/observability/tracing"
	"pipehub/internal/repository"
	"pipehub/internal/usecase/dispatch"
	"pipehub/internal/usecase/tenant"
)

// poolStatsInterval is how often database pool gauges are refreshed.
const poolStatsInterval = 15 * time.Second

func serveAction(ctx context.Context, c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	shutdownTracing := tracing.Init(cfg.Tracing)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", slog.Any("error", err))
		}
	}()

	store, err := openStorage(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := db.MigrateUp(ctx, store.migrateDB, store.driver); err != nil {
			return err
		}
		logger.Info("database migrations applied", slog.String("driver", store.driver))
	}

	if n, err := store.tenants.Count(ctx); err != nil {
		logger.Warn("failed to count tenants", slog.Any("error", err))
	} else {
		metrics.UpdateTenantsTotal(int(n))
	}

	srv := buildServer(cfg, store, logger)
	return runServer(ctx, logger, srv, store, cfg.Server.ShutdownTimeout)
}

// buildServer wires clients, use cases and handlers into an http.Server.
func buildServer(cfg *config.Config, store *storage, logger *slog.Logger) *http.Server {
	wecom := notifier.NewWeComClient(cfg.WeComClientConfig())
	telegram := notifier.NewTelegramClient(cfg.TelegramClientConfig())
	cache := tokencache.NewWithShards(cfg.Dispatch.TokenCacheShards)
	if err := cache.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Warn("token cache gauge not registered", slog.Any("error", err))
	}

	dispatcher := dispatch.NewService(
		repository.NewStore(store.tenants, store.channels),
		[]dispatch.Channel{
			dispatch.NewWeComChannel(wecom, cache, tokencache.SystemClock{}, cfg.RetryPolicy()),
			dispatch.NewTelegramChannel(telegram),
		},
	)

	tenants := &tenant.Service{
		Tenants:  store.tenants,
		Channels: store.channels,
		Domain:   cfg.Server.Domain,
	}

	gh := github.NewClient(cfg.GitHub)
	sessions := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL, cfg.Session.SecureCookie)

	// Validate has already rejected malformed entries.
	proxies, _ := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)

	breakers := []hhttp.Breaker{wecom.Breaker(), telegram.Breaker(), gh.Breaker()}
	if store.breaker != nil {
		breakers = append(breakers, store.breaker)
	}

	handler := hhttp.NewRouter(hhttp.RouterConfig{
		Logger:     logger,
		Dispatcher: dispatcher,
		Tenants:    tenants,
		OAuth: &auth.OAuthHandler{
			Auth:      gh,
			Tenants:   tenants,
			Sessions:  sessions,
			WebDomain: cfg.Server.WebDomain,
		},
		Sessions: sessions,
		Health: &hhttp.HealthHandler{
			DB:         store.healthDB,
			Version:    version,
			TokenCache: cache,
			Breakers:   breakers,
		},
		Ready:          &hhttp.ReadyHandler{DB: store.healthDB},
		LoginURL:       strings.TrimRight(cfg.Server.Domain, "/") + "/login",
		WebDomain:      cfg.Server.WebDomain,
		StaticDir:      cfg.Server.StaticDir,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		LoginRateLimit: cfg.Server.LoginRateLimit,
		ClientIP:       middleware.NewIPExtractor(proxies, logger),
	})

	return &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
}

// runServer serves until SIGINT, SIGTERM or ctx ends, then shuts down gracefully.
func runServer(ctx context.Context, logger *slog.Logger, srv *http.Server, store *storage, shutdownTimeout time.Duration) error {
	// Request contexts and background goroutines end with this context. It is
	// cancelled only after Shutdown has drained in-flight requests.
	bgCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	srv.BaseContext = func(_ net.Listener) context.Context {
		return bgCtx
	}

	go db.WatchPoolStats(bgCtx, store.healthDB, poolStatsInterval)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("version", version),
			slog.String("database_driver", store.driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var serveErr error
	select {
	case sig := <-sigCh:
		logger.Info("shutting down server...", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down server...", slog.String("reason", "context done"))
	case err, ok := <-errCh:
		if ok {
			serveErr = fmt.Errorf("server failed: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	cancel()
	logger.Info("server stopped")
	return serveErr
}
