package retry

import (
	"context"
	"fmt"
	"time"
)

// Config controls the retry behavior.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Do runs op up to cfg.MaxAttempts times, sleeping between attempts with
// exponential backoff (BaseDelay, 2*BaseDelay, 4*BaseDelay, ...). It returns
// nil as soon as op succeeds, the last error once attempts are exhausted, or
// the context error if the context is canceled during a backoff wait.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := op(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.BaseDelay << (attempt - 1)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted after %d attempt(s): %w", attempt, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("all %d attempt(s) failed: %w", cfg.MaxAttempts, lastErr)
}
