package utils

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// RetryConfig bounds how many times a transient remote failure is retried and
// how long to wait between attempts. The delay grows linearly with the attempt
// number.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// DefaultRetry is the shared policy for remote calls: 3 attempts with
// 1s/2s pauses in between before the failure is surfaced.
var DefaultRetry = RetryConfig{MaxAttempts: 3, InitialDelay: time.Second}

// WithRetry runs op until it succeeds, the attempt budget is exhausted, or ctx
// is cancelled. The last error is returned wrapped with the attempt count.
func WithRetry(ctx context.Context, cfg RetryConfig, op func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * cfg.InitialDelay):
		}
	}

	return errors.Wrapf(err, "after %d attempts", cfg.MaxAttempts)
}
