package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/mdnair2344/greenbasket/internal/domain/errors"
)

// Policy bounds optimistic transaction retries.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

const (
	defaultMaxAttempts = 5
	defaultBaseDelay   = 20 * time.Millisecond
	defaultMaxDelay    = time.Second
)

// DefaultPolicy is used when configuration leaves fields unset.
var DefaultPolicy = Policy{MaxAttempts: defaultMaxAttempts, BaseDelay: defaultBaseDelay, MaxDelay: defaultMaxDelay}

func (p Policy) normalized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Delay returns the exponential backoff before the given retry (1-based).
func (p Policy) Delay(attempt int) time.Duration {
	p = p.normalized()
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return d
}

// OnConflict runs fn until it succeeds, fails with a non-conflict error, or the
// attempt budget is spent. Exhaustion is reported as ErrConcurrencyFailure.
func OnConflict(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	p = p.normalized()
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil || !errors.Is(err, domainErrors.ErrConflict) {
			return err
		}
		lastErr = err
		if attempt == p.MaxAttempts {
			break
		}
		if err := Sleep(ctx, p.Delay(attempt)); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", domainErrors.ErrConcurrencyFailure, p.MaxAttempts, lastErr)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
