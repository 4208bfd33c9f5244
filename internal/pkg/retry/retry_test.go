package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
)

func TestPolicyDelay(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: 35 * time.Millisecond}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 10 * time.Millisecond},
		{1, 10 * time.Millisecond},
		{2, 20 * time.Millisecond},
		{3, 35 * time.Millisecond},
		{10, 35 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := p.Delay(tc.attempt); got != tc.want {
			t.Errorf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestOnConflictRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := OnConflict(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("commit: %w", domainErrors.ErrConflict)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestOnConflictExhausted(t *testing.T) {
	calls := 0
	err := OnConflict(context.Background(), Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}, func(context.Context) error {
		calls++
		return domainErrors.ErrConflict
	})
	if !errors.Is(err, domainErrors.ErrConcurrencyFailure) {
		t.Fatalf("expected concurrency failure, got %v", err)
	}
	if !errors.Is(err, domainErrors.ErrConflict) {
		t.Fatalf("expected last conflict to be wrapped, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestOnConflictStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := OnConflict(context.Background(), Policy{}, func(context.Context) error {
		calls++
		return boom
	})
	if err != boom || calls != 1 {
		t.Fatalf("expected single call returning boom, got %v after %d calls", err, calls)
	}
}

func TestOnConflictHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := OnConflict(ctx, Policy{MaxAttempts: 3, BaseDelay: time.Second}, func(context.Context) error {
		return domainErrors.ErrConflict
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}
