package aiprovider

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastPolicy keeps backoff waits negligible in tests.
func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), nil, "test", func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), nil, "test", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewError("test", CategoryNetwork, "transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoAbortsOnFatalError(t *testing.T) {
	calls := 0
	fatal := NewError("test", CategoryAuth, "bad key")
	err := Do(context.Background(), fastPolicy(5), nil, "test", func(ctx context.Context) error {
		calls++
		return fatal
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (fatal errors abort immediately)", calls)
	}

	var perr *Error
	if !errors.As(err, &perr) || perr.Category != CategoryAuth {
		t.Errorf("error = %v, want AUTH_ERROR", err)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), nil, "test", func(ctx context.Context) error {
		calls++
		return NewError("test", CategoryRateLimit, "slow down")
	})
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}

	var perr *Error
	if !errors.As(err, &perr) || perr.Category != CategoryRateLimit {
		t.Errorf("final error = %v, want RATE_LIMIT", err)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Minute}, nil, "test", func(ctx context.Context) error {
		calls++
		cancel()
		return NewError("test", CategoryNetwork, "transient")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancellation aborts the backoff wait)", calls)
	}
	if err == nil {
		t.Fatal("expected an error after cancellation")
	}
}

func TestDoTreatsZeroAttemptsAsOne(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), RetryPolicy{MaxAttempts: 0, BaseDelay: time.Millisecond}, nil, "test", func(ctx context.Context) error {
		calls++
		return NewError("test", CategoryNetwork, "transient")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	if p.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", p.MaxAttempts)
	}
	if p.BaseDelay != 2*time.Second {
		t.Errorf("BaseDelay = %v, want 2s", p.BaseDelay)
	}
	if p.MaxDelay != 30*time.Second {
		t.Errorf("MaxDelay = %v, want 30s", p.MaxDelay)
	}
}
