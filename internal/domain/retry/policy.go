// Package retry defines retry policies and backoff strategies for remote
// calls that may transiently fail or return no data yet.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy defines a retry strategy.
type Policy struct {
	MaxRetries      int           `json:"max_retries"`
	InitialDelay    time.Duration `json:"initial_delay"`
	MaxDelay        time.Duration `json:"max_delay"`
	BackoffStrategy BackoffType   `json:"backoff_strategy"`
	JitterFactor    float64       `json:"jitter_factor"` // 0.0-1.0
}

// BackoffType identifies the backoff strategy.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"       // Same delay each time
	BackoffLinear      BackoffType = "linear"      // Delay increases linearly
	BackoffExponential BackoffType = "exponential" // Delay doubles each time
)

// DefaultPolicy returns a sensible default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:      3,
		InitialDelay:    1 * time.Second,
		MaxDelay:        30 * time.Second,
		BackoffStrategy: BackoffExponential,
		JitterFactor:    0.25,
	}
}

// FixedPolicy returns a policy with a fixed delay between attempts, used for
// bounded attribute reads during reconciliation.
func FixedPolicy(maxRetries int, delay time.Duration) Policy {
	return Policy{
		MaxRetries:      maxRetries,
		InitialDelay:    delay,
		MaxDelay:        delay,
		BackoffStrategy: BackoffFixed,
	}
}

// ReconnectPolicy returns the policy used for event-stream reconnect delays.
func ReconnectPolicy() Policy {
	return Policy{
		MaxRetries:      math.MaxInt32,
		InitialDelay:    time.Second,
		MaxDelay:        30 * time.Second,
		BackoffStrategy: BackoffExponential,
		JitterFactor:    0.2,
	}
}

// CalculateDelay calculates the delay for a given attempt.
func (p *Policy) CalculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	var delay time.Duration

	switch p.BackoffStrategy {
	case BackoffFixed:
		delay = p.InitialDelay
	case BackoffLinear:
		delay = p.InitialDelay * time.Duration(attempt)
	case BackoffExponential:
		delay = p.InitialDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	default:
		delay = p.InitialDelay
	}

	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.JitterFactor > 0 {
		jitter := float64(delay) * p.JitterFactor * (rand.Float64()*2 - 1)
		delay = time.Duration(float64(delay) + jitter)
		if delay < 0 {
			delay = 0
		}
	}

	return delay
}

// RetryableFunc is a function that can be retried.
type RetryableFunc func(ctx context.Context, attempt int) error

// Execute runs fn with retries according to the policy, stopping early when
// the context is cancelled.
func Execute(ctx context.Context, policy Policy, fn RetryableFunc) error {
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt >= policy.MaxRetries {
			break
		}

		delay := policy.CalculateDelay(attempt + 1)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return lastErr
}

// ExecuteWithResult runs fn with retries and returns its result.
func ExecuteWithResult[T any](ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		r, err := fn(ctx, attempt)
		if err == nil {
			return r, nil
		}
		lastErr = err

		if attempt >= policy.MaxRetries {
			break
		}

		delay := policy.CalculateDelay(attempt + 1)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return zero, lastErr
}
