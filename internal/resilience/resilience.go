// Package resilience guards calls to the Telegram Bot API with a circuit
// breaker and retries with exponential backoff.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrCircuitOpen indicates the circuit breaker is open.
	ErrCircuitOpen = gobreaker.ErrOpenState
	// ErrExhaustedRetries indicates retry attempts were exhausted.
	ErrExhaustedRetries = errors.New("retry attempts exhausted")
)

// Config controls a Guard.
type Config struct {
	Name string

	// MaxFailures consecutive failed calls open the breaker for OpenTimeout.
	MaxFailures uint32
	OpenTimeout time.Duration

	// CallTimeout bounds a single attempt.
	CallTimeout time.Duration

	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	RandomFactor    float64
}

// DefaultConfig returns the settings used for Telegram actions.
func DefaultConfig(name string) Config {
	return Config{
		Name:            name,
		MaxFailures:     5,
		OpenTimeout:     time.Minute,
		CallTimeout:     10 * time.Second,
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		Multiplier:      2.0,
		RandomFactor:    0.1,
	}
}

// Guard runs operations through a circuit breaker, retrying failures.
// It is safe for concurrent use.
type Guard struct {
	cfg     Config
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// New creates a Guard. Zero values in cfg fall back to DefaultConfig.
func New(cfg Config, logger *slog.Logger) *Guard {
	def := DefaultConfig(cfg.Name)
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = def.InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = def.MaxInterval
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = def.Multiplier
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "resilience", "guard", cfg.Name)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state changed", "from", from.String(), "to", to.String())
		},
	}

	return &Guard{
		cfg:     cfg,
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  log,
	}
}

// State returns the breaker state name: "closed", "half-open" or "open".
func (g *Guard) State() string {
	return g.breaker.State().String()
}

// Do runs op, retrying failed attempts with exponential backoff. Each
// attempt goes through the breaker; once it opens Do stops with
// ErrCircuitOpen.
func (g *Guard) Do(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	interval := g.cfg.InitialInterval

	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		err := g.attempt(ctx, op)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("retry abandoned: %w", ctx.Err())
		}
		if errors.Is(err, ErrCircuitOpen) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrCircuitOpen
		}
		if attempt == g.cfg.MaxAttempts {
			break
		}

		g.logger.DebugContext(ctx, "Operation failed, retrying",
			"attempt", attempt,
			"max_attempts", g.cfg.MaxAttempts,
			"next_interval", interval,
			"error", err)

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry abandoned: %w", ctx.Err())
		case <-timer.C:
		}

		jitter := 1.0 + g.cfg.RandomFactor*(2*rand.Float64()-1)
		interval = min(time.Duration(float64(interval)*g.cfg.Multiplier*jitter), g.cfg.MaxInterval)
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhaustedRetries, g.cfg.MaxAttempts, lastErr)
}

func (g *Guard) attempt(ctx context.Context, op func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	_, err := g.breaker.Execute(func() (any, error) {
		return nil, op(callCtx)
	})
	return err
}
