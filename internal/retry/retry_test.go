package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errRateLimited = errors.New("rate limited")

func isRateLimited(err error) bool {
	return errors.Is(err, errRateLimited)
}

func testConfig() Config {
	return Config{
		MaxAttempts: 5,
		BaseDelay:   5 * time.Millisecond,
		MaxDelay:    20 * time.Millisecond,
		Multiplier:  2.0,
		Jitter:      1, // effectively none, keeps the test schedule tight
		Retryable:   isRateLimited,
	}
}

func TestDo_RetriesRateLimitThenSucceeds(t *testing.T) {
	attempts := 0
	start := time.Now()

	err := Do(context.Background(), testConfig(), "op", func(context.Context) error {
		attempts++
		if attempts <= 3 {
			return errRateLimited
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}

	if attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", attempts)
	}

	// Three sleeps: 5ms + 10ms + 20ms.
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("expected elapsed >= 35ms (sum of first 3 backoff intervals), got %v", elapsed)
	}
}

func TestDo_NonRetryableFailsFast(t *testing.T) {
	attempts := 0
	wantErr := errors.New("permission denied")

	err := Do(context.Background(), testConfig(), "op", func(context.Context) error {
		attempts++
		return wantErr
	})

	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("expected error to propagate unchanged, got %v", err)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	attempts := 0

	err := Do(context.Background(), testConfig(), "op", func(context.Context) error {
		attempts++
		return errRateLimited
	})

	if attempts != 5 {
		t.Errorf("expected 5 attempts, got %d", attempts)
	}
	if !errors.Is(err, errRateLimited) {
		t.Errorf("expected wrapped rate-limit error, got %v", err)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := testConfig()
	cfg.BaseDelay = 1 * time.Second

	attempts := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := Do(ctx, cfg, "op", func(context.Context) error {
		attempts++
		return errRateLimited
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", attempts)
	}
}

func TestDoValue(t *testing.T) {
	attempts := 0

	got, err := DoValue(context.Background(), testConfig(), "op", func(context.Context) (int, error) {
		attempts++
		if attempts == 1 {
			return 0, errRateLimited
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("DoValue: %v", err)
	}

	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestDo_NilRetryableNeverRetries(t *testing.T) {
	attempts := 0

	err := Do(context.Background(), Config{}, "op", func(context.Context) error {
		attempts++
		return errRateLimited
	})

	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
	if !errors.Is(err, errRateLimited) {
		t.Errorf("unexpected error: %v", err)
	}
}
