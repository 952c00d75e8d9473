package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "reklama5-scraper/pkg/errors"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *Logger

	// Sleep defaults to SleepContext.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do executes fn with linear back-off. Typed errors that are not retryable
// are returned immediately.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func() error) error {
	attempts := r.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		var typed *apperrors.Error
		if errors.As(lastErr, &typed) && !typed.IsRetryable() {
			return lastErr
		}

		if attempt < attempts {
			delay := r.BaseDelay * time.Duration(attempt)
			if r.Logger != nil {
				r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
					operationName, attempt, attempts, lastErr, delay)
			}
			if err := sleep(ctx, delay); err != nil {
				return fmt.Errorf("%s aborted after %d attempts: %w", operationName, attempt, lastErr)
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, lastErr)
}
