// Package guard protects calls to external services with a per-call timeout,
// a token-bucket rate limit and a circuit breaker.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config configures a Guard. Zero fields take the defaults noted.
type Config struct {
	// Name labels the breaker in logs.
	Name string

	// Timeout bounds each call. Default: 10s.
	Timeout time.Duration

	// RatePerSecond is the sustained call rate; <= 0 disables limiting.
	RatePerSecond float64

	// Burst is the limiter bucket size. Default: 1.
	Burst int

	// MaxFailures is the number of consecutive failures that opens the breaker. Default: 3.
	MaxFailures uint32

	// Cooldown is how long the breaker stays open before probing. Default: 30s.
	Cooldown time.Duration

	// HalfOpenMaxRequests is the number of probe calls allowed while half-open. Default: 1.
	HalfOpenMaxRequests uint32
}

// Guard wraps calls to one external service.
type Guard struct {
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// New creates a Guard.
func New(cfg Config, logger *slog.Logger) *Guard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests == 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	g := &Guard{timeout: cfg.Timeout}
	if cfg.RatePerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.HalfOpenMaxRequests,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return g
}

// Do runs fn under the guard. fn receives a context bounded by the call timeout.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		return fn(callCtx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return out, err
}

// State reports the breaker state ("closed", "half-open" or "open").
func (g *Guard) State() string {
	return g.breaker.State().String()
}
