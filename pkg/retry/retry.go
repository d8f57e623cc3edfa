// Package retry implements a bounded fixed-interval retry loop.
//
// Unlike exponential-backoff retries, the interval here is constant: the one
// consumer is the durable store's history query, which polls at a steady
// cadence while a cold-started database wakes up.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// Config holds retry configuration.
type Config struct {
	// Attempts is the total number of attempts, including the first.
	Attempts int
	// Interval is the fixed wait between attempts.
	Interval time.Duration
	// Clock is used for waiting between attempts. Defaults to the real clock.
	Clock clockwork.Clock
}

func (cfg *Config) Validate() error {
	if cfg.Attempts <= 0 {
		return errors.New("attempts must be greater than 0")
	}
	if cfg.Interval <= 0 {
		return errors.New("interval must be greater than 0")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Do runs fn until it succeeds, the attempt budget is exhausted, or ctx is
// cancelled. It returns the last error when all attempts fail.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-cfg.Clock.After(cfg.Interval):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", cfg.Attempts, lastErr)
}
