package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"pipehub/internal/config"
	"pipehub/internal/domain/entity"
	"pipehub/internal/domain/tenantkey"
	"pipehub/internal/infra/db"
)

/* ───────── helpers ───────── */

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PIPEHUB_GITHUB_CLIENT_ID", "client-id")
	t.Setenv("PIPEHUB_GITHUB_CLIENT_SECRET", "client-secret")
	t.Setenv("PIPEHUB_SESSION_SECRET", strings.Repeat("s", config.MinSessionSecretLength))
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), append([]string{"pipehub"}, args...))
	return out.String(), err
}

// loadWith runs loadConfig under the root flag set.
func loadWith(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var cfg *config.Config
	cmd := &cli.Command{
		Name:  "pipehub",
		Flags: newApp(io.Discard).Flags,
		Action: func(_ context.Context, c *cli.Command) error {
			var err error
			cfg, err = loadConfig(c)
			return err
		},
	}
	err := cmd.Run(context.Background(), append([]string{"pipehub"}, args...))
	return cfg, err
}

/* ───────── key ───────── */

func TestKeyCommands_RoundTrip(t *testing.T) {
	// Act
	encoded, err := run(t, "key", "encode", "2002")
	require.NoError(t, err)
	key := strings.TrimSpace(encoded)

	decoded, err := run(t, "key", "decode", key)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, tenantkey.Encode(2002), key)
	assert.Equal(t, "2002\n", decoded)
}

func TestKeyCommands_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "encode without argument", args: []string{"key", "encode"}},
		{name: "encode non numeric", args: []string{"key", "encode", "abc"}},
		{name: "decode without argument", args: []string{"key", "decode"}},
		{name: "decode too many arguments", args: []string{"key", "decode", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestKeyDecode_InvalidKey(t *testing.T) {
	_, err := run(t, "key", "decode", "0OIl")
	assert.ErrorIs(t, err, entity.ErrInvalidKey)
}

/* ───────── config ───────── */

func TestLoadConfig_FlagsOverride(t *testing.T) {
	// Arrange
	setRequiredEnv(t)
	t.Setenv("PIPEHUB_SERVER_ADDR", ":7000")

	// Act
	cfg, err := loadWith(t,
		"--addr", ":9090",
		"--log-level", "debug",
		"--database-driver", "sqlite",
		"--database-dsn", "/tmp/flags.db")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, db.DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/flags.db", cfg.Database.DSN)
}

func TestLoadConfig_EnvWithoutFlags(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PIPEHUB_SERVER_ADDR", ":7000")

	cfg, err := loadWith(t)

	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
}

func TestLoadConfig_MissingSecrets(t *testing.T) {
	t.Setenv("PIPEHUB_GITHUB_CLIENT_ID", "")
	t.Setenv("PIPEHUB_GITHUB_CLIENT_SECRET", "")
	t.Setenv("PIPEHUB_SESSION_SECRET", "")

	_, err := loadWith(t)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.secret")
}

/* ───────── storage and server ───────── */

func TestMigrateUp_SQLite(t *testing.T) {
	// Arrange
	setRequiredEnv(t)
	path := filepath.Join(t.TempDir(), "pipehub.db")

	// Act
	_, err := run(t, "--database-driver", "sqlite", "--database-dsn", path, "migrate", "up")

	// Assert
	require.NoError(t, err)

	file, err := db.OpenSQLite(path)
	require.NoError(t, err)
	defer file.Close()
	conn, err := file.ReadSQLDB()
	require.NoError(t, err)
	v, err := db.SchemaVersion(context.Background(), conn, db.DriverSQLite)
	require.NoError(t, err)
	assert.Positive(t, v)
}

func TestOpenStorage_UnsupportedDriver(t *testing.T) {
	_, err := openStorage(context.Background(), config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestBuildServer_SQLite(t *testing.T) {
	// Arrange
	setRequiredEnv(t)
	ctx := context.Background()
	cfg, err := loadWith(t, "--database-dsn", filepath.Join(t.TempDir(), "pipehub.db"), "--addr", ":0")
	require.NoError(t, err)

	store, err := openStorage(ctx, cfg.Database)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, db.MigrateUp(ctx, store.migrateDB, store.driver))

	srv := buildServer(cfg, store, nil)
	assert.Equal(t, ":0", srv.Addr)
	assert.Equal(t, cfg.Server.ReadHeaderTimeout, srv.ReadHeaderTimeout)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "liveness", method: http.MethodGet, path: "/live", want: http.StatusOK},
		{name: "readiness", method: http.MethodGet, path: "/ready", want: http.StatusOK},
		{name: "settings need a session", method: http.MethodGet, path: "/user", want: http.StatusUnauthorized},
		{name: "login redirects to github", method: http.MethodGet, path: "/login", want: http.StatusFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			rec := httptest.NewRecorder()
			srv.Handler.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			// Assert
			assert.Equal(t, tt.want, rec.Code)
		})
	}

	t.Run("unknown tenant key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		path := "/send/" + tenantkey.Encode(42) + "?text=hi"
		srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), `"success":false`)
	})
}

func TestRunServer_StopsWhenContextDone(t *testing.T) {
	// Arrange
	setRequiredEnv(t)
	cfg, err := loadWith(t, "--database-dsn", filepath.Join(t.TempDir(), "pipehub.db"), "--addr", "127.0.0.1:0")
	require.NoError(t, err)
	store, err := openStorage(context.Background(), cfg.Database)
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act
	err = runServer(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), buildServer(cfg, store, nil), store, cfg.Server.ShutdownTimeout)

	// Assert
	assert.NoError(t, err)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestRunServer_InFlightRequestSurvivesShutdown(t *testing.T) {
	// Arrange
	setRequiredEnv(t)
	cfg, err := loadWith(t, "--database-dsn", filepath.Join(t.TempDir(), "pipehub.db"))
	require.NoError(t, err)
	store, err := openStorage(context.Background(), cfg.Database)
	require.NoError(t, err)
	defer store.Close()

	entered := make(chan struct{})
	ctxErr := make(chan error, 1)
	srv := &http.Server{
		Addr: freeAddr(t),
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			close(entered)
			time.Sleep(100 * time.Millisecond)
			ctxErr <- r.Context().Err()
			w.WriteHeader(http.StatusOK)
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- runServer(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), srv, store, 5*time.Second)
	}()

	status := make(chan int, 1)
	go func() {
		for i := 0; i < 100; i++ {
			resp, err := http.Get("http://" + srv.Addr + "/")
			if err == nil {
				_ = resp.Body.Close()
				status <- resp.StatusCode
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
		status <- 0
	}()

	// Act: shut down while the request is being handled
	<-entered
	cancel()

	// Assert
	assert.Equal(t, http.StatusOK, <-status)
	assert.NoError(t, <-ctxErr)
	assert.NoError(t, <-done)
}
