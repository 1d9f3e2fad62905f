package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"vidbridge/conversation-api/internal/domain/retry"
)

func TestCalculateDelay(t *testing.T) {
	tests := []struct {
		name    string
		policy  retry.Policy
		attempt int
		want    time.Duration
	}{
		{
			name:    "zero attempt has no delay",
			policy:  retry.FixedPolicy(3, time.Second),
			attempt: 0,
			want:    0,
		},
		{
			name:    "fixed stays constant",
			policy:  retry.FixedPolicy(3, 2*time.Second),
			attempt: 3,
			want:    2 * time.Second,
		},
		{
			name: "linear grows with attempt",
			policy: retry.Policy{
				MaxRetries:      5,
				InitialDelay:    time.Second,
				MaxDelay:        time.Minute,
				BackoffStrategy: retry.BackoffLinear,
			},
			attempt: 3,
			want:    3 * time.Second,
		},
		{
			name: "exponential doubles",
			policy: retry.Policy{
				MaxRetries:      5,
				InitialDelay:    time.Second,
				MaxDelay:        time.Minute,
				BackoffStrategy: retry.BackoffExponential,
			},
			attempt: 4,
			want:    8 * time.Second,
		},
		{
			name: "capped at max delay",
			policy: retry.Policy{
				MaxRetries:      10,
				InitialDelay:    time.Second,
				MaxDelay:        5 * time.Second,
				BackoffStrategy: retry.BackoffExponential,
			},
			attempt: 10,
			want:    5 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.CalculateDelay(tt.attempt); got != tt.want {
				t.Errorf("CalculateDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestCalculateDelayJitterBounds(t *testing.T) {
	policy := retry.Policy{
		MaxRetries:      3,
		InitialDelay:    time.Second,
		MaxDelay:        time.Minute,
		BackoffStrategy: retry.BackoffFixed,
		JitterFactor:    0.5,
	}

	for i := 0; i < 100; i++ {
		got := policy.CalculateDelay(1)
		if got < 500*time.Millisecond || got > 1500*time.Millisecond {
			t.Fatalf("CalculateDelay with 0.5 jitter = %v, want within [500ms, 1.5s]", got)
		}
	}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := retry.Execute(context.Background(), retry.FixedPolicy(3, time.Millisecond),
		func(ctx context.Context, attempt int) error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestExecuteReturnsLastError(t *testing.T) {
	want := errors.New("still failing")
	calls := 0
	err := retry.Execute(context.Background(), retry.FixedPolicy(2, time.Millisecond),
		func(ctx context.Context, attempt int) error {
			calls++
			return want
		})
	if !errors.Is(err, want) {
		t.Errorf("Execute() error = %v, want %v", err, want)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want initial attempt plus 2 retries", calls)
	}
}

func TestExecuteStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry.Execute(ctx, retry.FixedPolicy(10, time.Hour),
		func(ctx context.Context, attempt int) error {
			calls++
			cancel()
			return errors.New("transient")
		})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Execute() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestExecuteWithResult(t *testing.T) {
	calls := 0
	got, err := retry.ExecuteWithResult(context.Background(), retry.FixedPolicy(3, time.Millisecond),
		func(ctx context.Context, attempt int) (int, error) {
			calls++
			if calls < 2 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})
	if err != nil {
		t.Fatalf("ExecuteWithResult() error = %v", err)
	}
	if got != 42 {
		t.Errorf("result = %d, want 42", got)
	}
}
