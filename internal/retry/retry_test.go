package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetryRepeatsTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 2, Delay: time.Millisecond, Retryable: TransientStatus}, func() error {
		calls++
		if calls == 1 {
			return &StatusError{Code: 503}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestWithRetryStopsOnPermanentFailure(t *testing.T) {
	t.Parallel()

	calls := 0
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 3, Delay: time.Millisecond, Retryable: TransientStatus}, func() error {
		calls++
		return &StatusError{Code: 401}
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected a single call for non-transient status, got %d", calls)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	t.Parallel()

	calls := 0
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 2, Delay: time.Millisecond, Retryable: TransientStatus}, func() error {
		calls++
		return &StatusError{Code: 429}
	})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 429 {
		t.Fatalf("expected wrapped status error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestWithRetryHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithRetry(ctx, RetryConfig{MaxAttempts: 3, Delay: time.Hour}, func() error {
		return errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestTransientStatus(t *testing.T) {
	t.Parallel()

	for code, want := range map[int]bool{429: true, 502: true, 503: true, 504: true, 500: false, 404: false} {
		if got := TransientStatus(&StatusError{Code: code}); got != want {
			t.Fatalf("TransientStatus(%d) = %v, want %v", code, got, want)
		}
	}
	if TransientStatus(errors.New("plain")) {
		t.Fatalf("plain errors are not transient")
	}
}

func TestWithRetryBackoffGrowsDelay(t *testing.T) {
	t.Parallel()

	var stamps []time.Time
	delay := 20 * time.Millisecond
	err := WithRetry(context.Background(), RetryConfig{MaxAttempts: 3, Delay: delay, Backoff: true}, func() error {
		stamps = append(stamps, time.Now())
		return errors.New("down")
	})
	if err == nil || len(stamps) != 3 {
		t.Fatalf("expected 3 failed attempts, got %d (%v)", len(stamps), err)
	}
	if gap := stamps[2].Sub(stamps[1]); gap < 2*delay {
		t.Fatalf("second wait should double the delay, got %s", gap)
	}
}
