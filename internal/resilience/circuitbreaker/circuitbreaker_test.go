package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          50 * time.Millisecond,
		FailureThreshold: 0.5,
		MinRequests:      3,
	}
}

var errBoom = errors.New("boom")

func fail() (interface{}, error) { return nil, errBoom }

func TestNew(t *testing.T) {
	cb := New(ProviderConfig("wecom"))

	require.NotNil(t, cb)
	assert.Equal(t, "wecom", cb.Name())
	assert.Equal(t, gobreaker.StateClosed, cb.State())
	assert.False(t, cb.IsOpen())
}

func TestCircuitBreaker_Execute_Success(t *testing.T) {
	cb := New(testConfig("ok"))

	result, err := cb.Execute(func() (interface{}, error) {
		return "success", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_Execute_Failure(t *testing.T) {
	cb := New(testConfig("fail"))

	_, err := cb.Execute(fail)

	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrOpen)
}

func TestCircuitBreaker_TripsOpen(t *testing.T) {
	// Arrange
	cb := New(testConfig("trip"))

	// Act
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(fail)
	}

	// Assert
	require.True(t, cb.IsOpen())

	called := false
	_, err := cb.Execute(func() (interface{}, error) {
		called = true
		return nil, nil
	})
	assert.False(t, called, "open circuit must not run the call")
	assert.ErrorIs(t, err, ErrOpen)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := New(testConfig("recover"))
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(fail)
	}
	require.True(t, cb.IsOpen())

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, gobreaker.StateHalfOpen, cb.State())

	_, err := cb.Execute(func() (interface{}, error) { return nil, nil })
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_MinRequests(t *testing.T) {
	cb := New(testConfig("min"))

	_, _ = cb.Execute(fail)
	_, _ = cb.Execute(fail)

	assert.Equal(t, gobreaker.StateClosed, cb.State(), "below MinRequests the ratio is not evaluated")
}

func TestNewWithFailurePredicate_IgnoredErrorsDoNotTrip(t *testing.T) {
	// Arrange
	ignored := errors.New("tenant misconfigured")
	cb := NewWithFailurePredicate(testConfig("predicate"), func(err error) bool {
		return !errors.Is(err, ignored)
	})

	// Act
	for i := 0; i < 10; i++ {
		_, err := cb.Execute(func() (interface{}, error) { return nil, ignored })
		require.ErrorIs(t, err, ignored, "the error is still returned to the caller")
	}

	// Assert
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(fail)
	}
	assert.True(t, cb.IsOpen(), "counted errors still trip the circuit")
}

func TestDo(t *testing.T) {
	cb := New(testConfig("typed"))

	n, err := Do(cb, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	n, err = Do(cb, func() (int, error) { return 0, errBoom })
	assert.ErrorIs(t, err, errBoom)
	assert.Zero(t, n)
}

func TestDo_OpenCircuit(t *testing.T) {
	cb := New(testConfig("typed-open"))
	for i := 0; i < 3; i++ {
		_, _ = cb.Execute(fail)
	}

	s, err := Do(cb, func() (string, error) { return "never", nil })

	assert.ErrorIs(t, err, ErrOpen)
	assert.Empty(t, s)
}

/* ───────── presets ───────── */

func TestProviderConfig(t *testing.T) {
	cfg := ProviderConfig("wecom")

	assert.Equal(t, "wecom", cfg.Name)
	assert.Equal(t, uint32(20), cfg.MinRequests)
	assert.InDelta(t, 0.9, cfg.FailureThreshold, 1e-9)
}

func TestProviderConfig_SingleDispatchCannotTrip(t *testing.T) {
	cb := New(ProviderConfig("wecom"))

	// four token fetches and four sends
	for i := 0; i < 8; i++ {
		_, _ = cb.Execute(fail)
	}

	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestGitHubAPIConfig(t *testing.T) {
	cfg := GitHubAPIConfig()

	assert.Equal(t, "github-api", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MinRequests)
}
