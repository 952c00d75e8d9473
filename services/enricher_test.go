package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reklama5-scraper/models"
	apperrors "reklama5-scraper/pkg/errors"
	"reklama5-scraper/utils"
)

func manyCars(n int) []*models.Listing {
	out := make([]*models.Listing, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, car(string(rune('a'+i)), "2024-01-05 10:00", models.Int(4000)))
	}
	return out
}

func TestEnrichPolicyValidate(t *testing.T) {
	tests := []struct {
		name   string
		policy EnrichPolicy
		ok     bool
	}{
		{"defaults", EnrichPolicy{Workers: 3}, true},
		{"rate equals workers", EnrichPolicy{Workers: 3, RateLimit: 3}, true},
		{"rate above workers", EnrichPolicy{Workers: 2, RateLimit: 3}, false},
		{"no workers", EnrichPolicy{Workers: 0}, false},
		{"too many workers", EnrichPolicy{Workers: 6}, false},
		{"negative max items", EnrichPolicy{Workers: 1, MaxItems: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperrors.IsConfig(err), "got %v", err)
			}
		})
	}
}

func TestNewEnricherRejectsConfigBeforeFetching(t *testing.T) {
	f := &detailFetcher{}
	_, err := NewEnricher(f, EnrichPolicy{Workers: 2, RateLimit: 4}, testLogger())
	assert.True(t, apperrors.IsConfig(err))
	assert.Zero(t, f.calls.Load())
}

func TestEnricherRespectsRateLimit(t *testing.T) {
	f := &detailFetcher{delay: 20 * time.Millisecond}
	e, err := NewEnricher(f, EnrichPolicy{Workers: 4, RateLimit: 2}, testLogger())
	require.NoError(t, err)
	e.Sleep = noSleep

	res := e.Enrich(context.Background(), manyCars(12))

	assert.Len(t, res.Listings, 12)
	assert.Equal(t, 12, res.Enriched)
	assert.Zero(t, res.Failed)
	assert.LessOrEqual(t, f.peak.Load(), int64(2))
	assert.LessOrEqual(t, res.PeakInFlight, 2)
	for _, l := range res.Listings {
		assert.Equal(t, "Дизел", l.Fuel)
		assert.Equal(t, 81, *l.KW)
	}
}

func TestEnricherDelayStaysInBounds(t *testing.T) {
	for _, r := range []float64{0, 0.5, 0.999} {
		f := &detailFetcher{}
		e, err := NewEnricher(f, EnrichPolicy{Workers: 3, Delay: utils.RandomDelay(time.Second, 2*time.Second)}, testLogger())
		require.NoError(t, err)

		var mu sync.Mutex
		var slept []time.Duration
		e.Rand = func() float64 { return r }
		e.Sleep = func(_ context.Context, d time.Duration) error {
			mu.Lock()
			slept = append(slept, d)
			mu.Unlock()
			return nil
		}

		e.Enrich(context.Background(), manyCars(6))

		require.Len(t, slept, 6)
		for _, d := range slept {
			assert.GreaterOrEqual(t, d, time.Second)
			assert.Less(t, d, 2*time.Second)
		}
	}
}

func TestEnricherKeepsFailedListings(t *testing.T) {
	cars := manyCars(3)
	f := &detailFetcher{fail: map[string]bool{cars[1].Link: true}}
	e, err := NewEnricher(f, EnrichPolicy{Workers: 2}, testLogger())
	require.NoError(t, err)
	e.Sleep = noSleep

	res := e.Enrich(context.Background(), cars)

	assert.Len(t, res.Listings, 3)
	assert.Equal(t, 2, res.Enriched)
	assert.Equal(t, 1, res.Failed)
	assert.Empty(t, cars[1].Fuel)
	assert.Equal(t, 4000, *cars[1].Price)
}

func TestEnricherMaxItems(t *testing.T) {
	f := &detailFetcher{}
	e, err := NewEnricher(f, EnrichPolicy{Workers: 2, MaxItems: 2}, testLogger())
	require.NoError(t, err)
	e.Sleep = noSleep

	res := e.Enrich(context.Background(), manyCars(5))

	assert.Len(t, res.Listings, 5)
	assert.Equal(t, int64(2), f.calls.Load())
	assert.Equal(t, 2, res.Enriched)
}
