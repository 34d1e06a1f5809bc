package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"newsimpact/pkg/errors"
)

// Limiter spaces outbound provider calls under a calls-per-minute ceiling
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter creates a new rate limiter.
// callsPerMinute: maximum number of calls allowed per minute.
func NewLimiter(name string, callsPerMinute int) *Limiter {
	if callsPerMinute < 1 {
		callsPerMinute = 1
	}

	rps := float64(callsPerMinute) / 60.0

	// Burst of 10% of the per-minute limit, at least one call
	burst := callsPerMinute / 10
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
	}
}

// Wait blocks until the limiter allows the call or ctx is done.
// A wait that cannot finish before the deadline is reported as a transient timeout.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		if ctx.Err() == context.Canceled {
			return errors.Wrapf(err, "rate limiter %s", l.name)
		}
		return errors.Transient(errors.Wrapf(errors.ErrTimeout, "rate limiter %s: %v", l.name, err))
	}
	return nil
}

// Allow checks if a call is allowed without blocking
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Name returns the limiter name used in logs and metrics
func (l *Limiter) Name() string {
	return l.name
}
