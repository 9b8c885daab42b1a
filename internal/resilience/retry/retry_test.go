package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fast(attempts int) Config {
	return Config{
		Name:         "test_op",
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     4 * time.Millisecond,
		Multiplier:   2,
	}
}

// failing returns fn failing with errs in order, then succeeding.
func failing(errs ...error) (fn func() error, calls *int) {
	n := 0
	return func() error {
		n++
		if n <= len(errs) {
			return errs[n-1]
		}
		return nil
	}, &n
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

/* ───────── WithBackoff ───────── */

func TestWithBackoff(t *testing.T) {
	unavailable := &HTTPError{StatusCode: http.StatusServiceUnavailable, Message: "github is down"}
	revoked := &HTTPError{StatusCode: http.StatusUnauthorized, Message: "bad credentials"}

	tests := []struct {
		name      string
		attempts  int
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{name: "first try", attempts: 3, wantCalls: 1},
		{name: "db still starting", attempts: 6, errs: []error{syscall.ECONNREFUSED, syscall.ECONNREFUSED}, wantCalls: 3},
		{name: "github 503 then ok", attempts: 3, errs: []error{unavailable}, wantCalls: 2},
		{name: "revoked token not retried", attempts: 3, errs: []error{revoked}, wantCalls: 1, wantErr: revoked},
		{name: "budget exhausted", attempts: 2, errs: []error{unavailable, unavailable, unavailable}, wantCalls: 2, wantErr: unavailable},
		{name: "zero attempts still calls once", attempts: 0, errs: []error{unavailable}, wantCalls: 1, wantErr: unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			fn, calls := failing(tt.errs...)

			// Act
			err := WithBackoff(context.Background(), fast(tt.attempts), fn)

			// Assert
			assert.Equal(t, tt.wantCalls, *calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestWithBackoff_ExhaustedErrorNamesOperation(t *testing.T) {
	fn, _ := failing(syscall.ECONNRESET, syscall.ECONNRESET)

	err := WithBackoff(context.Background(), fast(2), fn)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "test_op: gave up after 2 attempts")
}

func TestWithBackoff_CancelDuringWait(t *testing.T) {
	// Arrange
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fast(5)
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour
	calls := 0

	// Act
	err := WithBackoff(ctx, cfg, func() error {
		calls++
		cancel()
		return syscall.ECONNREFUSED
	})

	// Assert
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "retry aborted")
}

func TestWithBackoff_HonoursRetryAfterUpToMaxDelay(t *testing.T) {
	// Arrange
	cfg := fast(2)
	cfg.MaxDelay = 30 * time.Millisecond
	fn, calls := failing(&HTTPError{StatusCode: http.StatusTooManyRequests, RetryAfter: time.Minute})

	// Act
	start := time.Now()
	err := WithBackoff(context.Background(), cfg, fn)
	elapsed := time.Since(start)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 2, *calls)
	assert.GreaterOrEqual(t, elapsed, cfg.MaxDelay)
	assert.Less(t, elapsed, time.Second)
}

/* ───────── classification ───────── */

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "canceled", err: context.Canceled, want: false},
		{name: "deadline", err: fmt.Errorf("ping: %w", context.DeadlineExceeded), want: false},
		{name: "connection refused", err: fmt.Errorf("dial: %w", syscall.ECONNREFUSED), want: true},
		{name: "connection reset", err: syscall.ECONNRESET, want: true},
		{name: "network unreachable", err: syscall.ENETUNREACH, want: true},
		{name: "net timeout", err: &net.OpError{Op: "read", Err: timeoutErr{}}, want: true},
		{name: "http 500", err: &HTTPError{StatusCode: 500}, want: true},
		{name: "http 502", err: &HTTPError{StatusCode: 502}, want: true},
		{name: "http 429", err: &HTTPError{StatusCode: 429}, want: true},
		{name: "http 408", err: &HTTPError{StatusCode: 408}, want: true},
		{name: "http 401", err: &HTTPError{StatusCode: 401}, want: false},
		{name: "http 404", err: &HTTPError{StatusCode: 404}, want: false},
		{name: "decode failure", err: errors.New("decode github user: unexpected EOF"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]time.Duration{
		"30":                            30 * time.Second,
		" 2 ":                           2 * time.Second,
		"0":                             0,
		"-5":                            0,
		"":                              0,
		"Wed, 21 Oct 2015 07:28:00 GMT": 0,
	}
	for header, want := range tests {
		assert.Equal(t, want, ParseRetryAfter(header), "header %q", header)
	}
}

func TestHTTPError_Error(t *testing.T) {
	err := &HTTPError{StatusCode: http.StatusBadGateway, Message: "upstream"}
	assert.Equal(t, "HTTP 502: upstream", err.Error())
}

/* ───────── presets ───────── */

func TestPresets(t *testing.T) {
	for _, cfg := range []Config{GitHubAPIConfig(), DBStartupConfig()} {
		t.Run(cfg.Name, func(t *testing.T) {
			assert.NotEmpty(t, cfg.Name)
			assert.Greater(t, cfg.MaxAttempts, 1)
			assert.LessOrEqual(t, cfg.InitialDelay, cfg.MaxDelay)
			assert.GreaterOrEqual(t, cfg.Multiplier, 1.0)
			assert.InDelta(t, 0.1, cfg.Jitter, 1e-9)
		})
	}
	assert.Less(t, GitHubAPIConfig().MaxDelay, DBStartupConfig().MaxDelay, "login waits less than startup")
}

func TestWithJitter(t *testing.T) {
	base := 100 * time.Millisecond

	assert.Equal(t, base, withJitter(base, 0))
	assert.Equal(t, time.Duration(0), withJitter(0, 0.5))
	for i := 0; i < 50; i++ {
		got := withJitter(base, 0.2)
		assert.GreaterOrEqual(t, got, base)
		assert.LessOrEqual(t, got, base+20*time.Millisecond)
	}
	for i := 0; i < 50; i++ {
		assert.LessOrEqual(t, withJitter(base, 5), 2*base, "fraction is capped at 1")
	}
}
