package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestPolicy_DelayDoubling(t *testing.T) {
	p := Policy{Enabled: true, MaxRetries: 3, BaseDelay: time.Second}

	expected := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second}
	for attempt, want := range expected {
		if got := p.Delay(attempt); got != want {
			t.Errorf("Delay(%d) = %v, want %v", attempt, got, want)
		}
	}
}

func TestPolicy_DelayNegativeAttempt(t *testing.T) {
	p := Policy{BaseDelay: time.Second}
	if got := p.Delay(-1); got != 0 {
		t.Errorf("Delay(-1) = %v, want 0", got)
	}
}

func TestExecute_SuccessFirstAttempt(t *testing.T) {
	attempts := 0
	result, retries, err := Execute(context.Background(), DefaultPolicy, func(context.Context) (any, error) {
		attempts++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result != "ok" {
		t.Errorf("Expected result ok, got %v", result)
	}
	if retries != 0 || attempts != 1 {
		t.Errorf("Expected 1 attempt and 0 retries, got attempts=%d retries=%d", attempts, retries)
	}
}

func TestExecute_ExhaustsRetries(t *testing.T) {
	policy := Policy{Enabled: true, MaxRetries: 3, BaseDelay: time.Millisecond}
	wantErr := errors.New("persistent failure")

	attempts := 0
	start := time.Now()
	_, retries, err := Execute(context.Background(), policy, func(context.Context) (any, error) {
		attempts++
		return nil, wantErr
	})
	elapsed := time.Since(start)

	if attempts != 4 {
		t.Errorf("Expected exactly 4 attempts (0..3), got %d", attempts)
	}
	if retries != 3 {
		t.Errorf("Expected retry count 3, got %d", retries)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected original error to propagate, got %v", err)
	}
	// Backoff total is base*1 + base*2 + base*4.
	if elapsed < 7*time.Millisecond {
		t.Errorf("Expected at least 7ms of backoff, elapsed %v", elapsed)
	}
}

func TestExecute_SucceedsAfterRetries(t *testing.T) {
	policy := Policy{Enabled: true, MaxRetries: 5, BaseDelay: time.Millisecond}

	attempts := 0
	result, retries, err := Execute(context.Background(), policy, func(context.Context) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, fmt.Errorf("transient failure %d", attempts)
		}
		return attempts, nil
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result != 3 {
		t.Errorf("Expected result 3, got %v", result)
	}
	if retries != 2 {
		t.Errorf("Expected retry count 2, got %d", retries)
	}
}

func TestExecute_DisabledPropagatesImmediately(t *testing.T) {
	policy := Policy{Enabled: false, MaxRetries: 5, BaseDelay: time.Second}
	wantErr := errors.New("failure")

	attempts := 0
	start := time.Now()
	_, retries, err := Execute(context.Background(), policy, func(context.Context) (any, error) {
		attempts++
		return nil, wantErr
	})

	if attempts != 1 {
		t.Errorf("Expected single attempt with retry disabled, got %d", attempts)
	}
	if retries != 0 {
		t.Errorf("Expected retry count 0, got %d", retries)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected original error, got %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Expected no backoff wait with retry disabled")
	}
}

func TestExecute_BackoffCancellable(t *testing.T) {
	policy := Policy{Enabled: true, MaxRetries: 3, BaseDelay: 10 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err := Execute(ctx, policy, func(context.Context) (any, error) {
		return nil, errors.New("failure")
	})
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	// The 10s backoff must not be waited out in full.
	if elapsed > time.Second {
		t.Errorf("Expected backoff to abort on cancellation, elapsed %v", elapsed)
	}
}
