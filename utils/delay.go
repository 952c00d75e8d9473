package utils

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "reklama5-scraper/pkg/errors"
)

// DelayKind selects how a DelayPolicy produces waits.
type DelayKind int

const (
	DelayNone DelayKind = iota
	DelayFixed
	DelayRandom
)

// Default bounds of the randomized detail delay.
const (
	DefaultDelayMin = 1 * time.Second
	DefaultDelayMax = 2 * time.Second
)

// DelayPolicy describes the pause a worker takes after each fetch.
type DelayPolicy struct {
	Kind  DelayKind
	Fixed time.Duration
	Min   time.Duration
	Max   time.Duration
}

func NoDelay() DelayPolicy { return DelayPolicy{Kind: DelayNone} }

func FixedDelay(d time.Duration) DelayPolicy {
	if d <= 0 {
		return NoDelay()
	}
	return DelayPolicy{Kind: DelayFixed, Fixed: d}
}

// RandomDelay samples uniformly in [min, max]. Swapped bounds are reordered.
func RandomDelay(min, max time.Duration) DelayPolicy {
	if min > max {
		min, max = max, min
	}
	return DelayPolicy{Kind: DelayRandom, Min: min, Max: max}
}

func DefaultRandomDelay() DelayPolicy { return RandomDelay(DefaultDelayMin, DefaultDelayMax) }

// ParseDelayPolicy accepts "random", "none", or a number of seconds.
// "0" is the same as "none"; a decimal comma is accepted.
func ParseDelayPolicy(s string) (DelayPolicy, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "random", "default":
		return DefaultRandomDelay(), nil
	case "none", "off", "0":
		return NoDelay(), nil
	}
	secs, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return DelayPolicy{}, apperrors.NewConfig(fmt.Sprintf("invalid delay %q: want random, none or seconds", s))
	}
	if secs < 0 {
		return DelayPolicy{}, apperrors.NewConfig(fmt.Sprintf("delay must not be negative, got %v", secs))
	}
	return FixedDelay(time.Duration(secs * float64(time.Second))), nil
}

// Next returns the next wait. rnd must return values in [0, 1).
func (p DelayPolicy) Next(rnd func() float64) time.Duration {
	switch p.Kind {
	case DelayFixed:
		return p.Fixed
	case DelayRandom:
		span := p.Max - p.Min
		if span <= 0 {
			return p.Min
		}
		return p.Min + time.Duration(rnd()*float64(span))
	}
	return 0
}

func (p DelayPolicy) String() string {
	switch p.Kind {
	case DelayFixed:
		return fmt.Sprintf("fixed %v", p.Fixed)
	case DelayRandom:
		return fmt.Sprintf("random %v-%v", p.Min, p.Max)
	}
	return "none"
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
