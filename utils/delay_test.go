package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "reklama5-scraper/pkg/errors"
)

func TestParseDelayPolicy(t *testing.T) {
	tests := []struct {
		in   string
		want DelayPolicy
	}{
		{"random", DefaultRandomDelay()},
		{"", DefaultRandomDelay()},
		{"none", NoDelay()},
		{"0", NoDelay()},
		{"1.5", FixedDelay(1500 * time.Millisecond)},
		{"2,5", FixedDelay(2500 * time.Millisecond)},
	}
	for _, tt := range tests {
		got, err := ParseDelayPolicy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDelayPolicy("soon")
	assert.True(t, apperrors.IsConfig(err))
	_, err = ParseDelayPolicy("-1")
	assert.True(t, apperrors.IsConfig(err))
}

func TestRandomDelayStaysInBounds(t *testing.T) {
	p := DefaultRandomDelay()
	for _, r := range []float64{0, 0.25, 0.5, 0.999999} {
		d := p.Next(func() float64 { return r })
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 2*time.Second)
	}
	assert.Equal(t, 1500*time.Millisecond, p.Next(func() float64 { return 0.5 }))
}

func TestRandomDelaySwapsBounds(t *testing.T) {
	p := RandomDelay(3*time.Second, time.Second)
	assert.Equal(t, time.Second, p.Min)
	assert.Equal(t, 3*time.Second, p.Max)
}

func TestFixedAndNoDelay(t *testing.T) {
	never := func() float64 { panic("fixed delay must not sample") }
	assert.Equal(t, 2*time.Second, FixedDelay(2*time.Second).Next(never))
	assert.Equal(t, time.Duration(0), NoDelay().Next(never))
	assert.Equal(t, NoDelay(), FixedDelay(0))
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SleepContext(ctx, time.Hour)
	assert.True(t, errors.Is(err, context.Canceled))
}
