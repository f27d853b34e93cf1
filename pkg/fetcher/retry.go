package fetcher

import (
	"context"
	"math"
	"time"
)

const (
	DefaultMaxAttempts = 7
	DefaultMaxBackoff  = 2 * time.Minute
	DefaultMultiplier  = 2.0
)

// RetryPolicy bounds the retries of a single page request.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

func NewRetryPolicy(initialBackoff time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:    DefaultMaxAttempts,
		InitialBackoff: initialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		Multiplier:     DefaultMultiplier,
	}
}

// Backoff returns the wait after the given failed attempt, starting at 1.
func (r *RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := r.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	d := float64(r.InitialBackoff) * math.Pow(multiplier, float64(attempt-1))
	if r.MaxBackoff > 0 && d > float64(r.MaxBackoff) {
		return r.MaxBackoff
	}
	return time.Duration(d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
