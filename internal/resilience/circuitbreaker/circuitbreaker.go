// Package circuitbreaker stops PipeHub from hammering a messaging provider,
// GitHub or the database once most recent calls to it have failed. Breakers
// are built on github.com/sony/gobreaker and report transitions to Prometheus.
package circuitbreaker

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

// ErrOpen is returned when a call is rejected because the circuit is open
// or the half-open trial budget is used up.
var ErrOpen = errors.New("circuit breaker is open")

var stateChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "pipehub_circuit_breaker_state_changes_total",
		Help: "Total number of circuit breaker state transitions",
	},
	[]string{"circuit", "to"},
)

// Config describes one breaker. The circuit opens once at least MinRequests
// calls were made in the current Interval and FailureThreshold of them failed.
// After Timeout it lets MaxRequests trial calls through (half-open).
type Config struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// ProviderConfig returns configuration for a downstream messaging provider.
//
// A single dispatch makes at most eight calls to the enterprise chat provider
// (four token fetches, four sends), so MinRequests is well above that: one
// tenant with bad credentials must not open the circuit for every tenant.
func ProviderConfig(name string) Config {
	return Config{
		Name:             name,
		MaxRequests:      5,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.9,
		MinRequests:      20,
	}
}

// GitHubAPIConfig returns configuration for the GitHub OAuth and user API calls.
func GitHubAPIConfig() Config {
	return Config{
		Name:             "github-api",
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// CircuitBreaker is a named gobreaker.CircuitBreaker whose rejections wrap ErrOpen.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	name    string
}

// New counts every error as a failure.
func New(cfg Config) *CircuitBreaker {
	return NewWithFailurePredicate(cfg, nil)
}

// NewWithFailurePredicate creates a circuit breaker that only counts errors for
// which isFailure returns true. Other errors are returned to the caller but
// recorded as successes. A nil predicate counts every error.
func NewWithFailurePredicate(cfg Config, isFailure func(error) bool) *CircuitBreaker {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			stateChangesTotal.WithLabelValues(name, to.String()).Inc()
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
	if isFailure != nil {
		settings.IsSuccessful = func(err error) bool {
			return err == nil || !isFailure(err)
		}
	}

	return &CircuitBreaker{
		breaker: gobreaker.NewCircuitBreaker(settings),
		name:    cfg.Name,
	}
}

// Execute runs the given function through the circuit breaker.
// If the circuit is open, it returns an error wrapping ErrOpen immediately.
func (cb *CircuitBreaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := cb.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, errors.Join(ErrOpen, err)
	}
	return result, err
}

// Do is a typed form of Execute.
func Do[T any](cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	result, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if typed, ok := result.(T); ok {
			return typed, err
		}
		return zero, err
	}
	return result.(T), nil
}

func (cb *CircuitBreaker) State() gobreaker.State {
	return cb.breaker.State()
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen reports whether calls are currently rejected outright.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.breaker.State() == gobreaker.StateOpen
}
