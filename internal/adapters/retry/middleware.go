package retry

import (
	"context"
	"math"
	"time"

	"newsimpact/pkg/errors"
)

// Strategy defines the retry strategy
type Strategy string

const (
	// StrategyExponential uses exponential backoff
	StrategyExponential Strategy = "exponential"
	// StrategyLinear uses linear backoff
	StrategyLinear Strategy = "linear"
	// StrategyFixed uses fixed delay
	StrategyFixed Strategy = "fixed"
)

// Config contains retry configuration
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Strategy     Strategy
	Multiplier   float64 // For exponential backoff
}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() Config {
	return Config{
		MaxRetries:   1,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Strategy:     StrategyExponential,
		Multiplier:   2.0,
	}
}

// Middleware retries transient failures inside a single call.
// Cross-run retries are owned by the processing status state machine.
type Middleware struct {
	config Config
}

// New creates a new retry middleware
func New(config Config) *Middleware {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Strategy == "" {
		config.Strategy = StrategyExponential
	}

	return &Middleware{config: config}
}

// Do executes fn, retrying while it returns a transient error and ctx is alive
func (m *Middleware) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= m.config.MaxRetries; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		lastErr = err

		if !errors.IsTransient(err) || ctx.Err() != nil {
			return err
		}

		if attempt == m.config.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return errors.Transient(errors.Wrap(ctx.Err(), "retry cancelled"))
		case <-time.After(m.calculateDelay(attempt)):
		}
	}

	return errors.Wrapf(lastErr, "max retries (%d) exceeded", m.config.MaxRetries)
}

func (m *Middleware) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch m.config.Strategy {
	case StrategyExponential:
		delay = time.Duration(float64(m.config.InitialDelay) * math.Pow(m.config.Multiplier, float64(attempt)))
	case StrategyLinear:
		delay = m.config.InitialDelay * time.Duration(1+attempt)
	default:
		delay = m.config.InitialDelay
	}

	if delay > m.config.MaxDelay {
		delay = m.config.MaxDelay
	}

	return delay
}
