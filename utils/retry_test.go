package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "reklama5-scraper/pkg/errors"
)

func noSleep(context.Context, time.Duration) error { return nil }

func TestRetrySucceedsAfterFailures(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, Logger: NewNopLogger(), Sleep: noSleep}

	calls := 0
	err := r.Do(context.Background(), "page", func() error {
		calls++
		if calls < 3 {
			return apperrors.NewFetch("page", "status 503", nil)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUpAndKeepsType(t *testing.T) {
	var waits []time.Duration
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Second, Sleep: func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}}

	err := r.Do(context.Background(), "page", func() error {
		return apperrors.NewFetch("page", "timeout", nil)
	})

	assert.True(t, apperrors.IsFetch(err))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 5, Sleep: noSleep}

	calls := 0
	err := r.Do(context.Background(), "page", func() error {
		calls++
		return apperrors.NewParse("page", "bad markup", nil)
	})

	assert.True(t, apperrors.IsParse(err))
	assert.Equal(t, 1, calls)
}

func TestRetryAbortsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Hour}

	calls := 0
	err := r.Do(ctx, "page", func() error {
		calls++
		return errors.New("boom")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
