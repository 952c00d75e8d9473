package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"reklama5-scraper/models"
	apperrors "reklama5-scraper/pkg/errors"
	"reklama5-scraper/utils"
)

// MaxEnrichWorkers bounds EnrichPolicy.Workers.
const MaxEnrichWorkers = 5

// EnrichPolicy controls detail-page capture.
type EnrichPolicy struct {
	Workers int
	// RateLimit caps concurrent detail requests; 0 means Workers.
	RateLimit int
	// Delay is applied by each worker after each detail request.
	Delay utils.DelayPolicy
	// MaxItems caps how many listings are enriched; 0 means all.
	MaxItems int
}

// Validate reports an invalid policy as a ConfigError.
func (p EnrichPolicy) Validate() error {
	if p.Workers < 1 || p.Workers > MaxEnrichWorkers {
		return apperrors.NewConfig(fmt.Sprintf("detail workers must be between 1 and %d, got %d", MaxEnrichWorkers, p.Workers))
	}
	if p.RateLimit < 0 {
		return apperrors.NewConfig(fmt.Sprintf("detail rate limit must not be negative, got %d", p.RateLimit))
	}
	if p.RateLimit > p.Workers {
		return apperrors.NewConfig(fmt.Sprintf("detail rate limit %d exceeds detail workers %d", p.RateLimit, p.Workers))
	}
	if p.MaxItems < 0 {
		return apperrors.NewConfig(fmt.Sprintf("detail max items must not be negative, got %d", p.MaxItems))
	}
	return nil
}

func (p EnrichPolicy) permits() int {
	if p.RateLimit > 0 {
		return p.RateLimit
	}
	return p.Workers
}

// EnrichResult is the output of one enrichment pass. Listings come back in
// completion order.
type EnrichResult struct {
	Listings     []*models.Listing
	Enriched     int
	Failed       int
	PeakInFlight int
}

// Enricher fills in detail-page attributes with a fixed worker pool.
type Enricher struct {
	fetcher DetailFetcher
	policy  EnrichPolicy
	logger  *utils.Logger

	Rand  func() float64
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewEnricher validates policy before anything touches the network.
func NewEnricher(fetcher DetailFetcher, policy EnrichPolicy, logger *utils.Logger) (*Enricher, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Enricher{
		fetcher: fetcher,
		policy:  policy,
		logger:  logger.Component("enricher"),
		Rand:    rand.Float64,
		Sleep:   utils.SleepContext,
	}, nil
}

// Enrich fetches detail pages for listings. A failed detail request keeps
// the listing with its list-level attributes and counts as failed.
func (e *Enricher) Enrich(ctx context.Context, listings []*models.Listing) *EnrichResult {
	start := time.Now()
	res := &EnrichResult{Listings: make([]*models.Listing, 0, len(listings))}

	work := listings
	var rest []*models.Listing
	if e.policy.MaxItems > 0 && len(listings) > e.policy.MaxItems {
		work, rest = listings[:e.policy.MaxItems], listings[e.policy.MaxItems:]
	}

	sem := utils.NewSemaphore(e.policy.permits())
	e.logger.Info("[enricher] Fetching %d detail pages (workers=%d, in flight=%d, delay=%s)",
		len(work), e.policy.Workers, sem.Capacity(), e.policy.Delay)

	pool := utils.NewWorkerPool(e.policy.Workers)

	var (
		mu       sync.Mutex
		enriched atomic.Int64
		failed   atomic.Int64
	)
	done := func(l *models.Listing) {
		mu.Lock()
		res.Listings = append(res.Listings, l)
		mu.Unlock()
	}

	for _, l := range work {
		l := l
		pool.Submit(func() {
			defer done(l)
			if l.Link == "" {
				return
			}

			if err := sem.Acquire(ctx); err != nil {
				failed.Add(1)
				return
			}
			d, err := e.fetcher.FetchDetail(ctx, l.Link)
			sem.Release()

			if err != nil {
				failed.Add(1)
				e.logger.Warn("[enricher] Detail failed for %s: %v", l.ID, err)
			} else {
				l.ApplyDetails(d)
				enriched.Add(1)
			}

			if err := e.Sleep(ctx, e.policy.Delay.Next(e.Rand)); err != nil {
				e.logger.Debug("[enricher] Delay interrupted: %v", err)
			}
		})
	}
	pool.Wait()

	res.Listings = append(res.Listings, rest...)
	res.Enriched = int(enriched.Load())
	res.Failed = int(failed.Load())
	res.PeakInFlight = sem.Peak()

	e.logger.Info("[enricher] Enriched %d of %d listings (%d failed)", res.Enriched, len(work), res.Failed)
	e.logger.Elapsed("detail enrichment", start)
	return res
}
