package services

import (
	"context"
	"time"

	"reklama5-scraper/models"
	apperrors "reklama5-scraper/pkg/errors"
	"reklama5-scraper/storage"
	"reklama5-scraper/utils"
)

// Runner wires one ingestion run: paginate, dedup, enrich, classify and
// persist, then aggregate everything stored.
type Runner struct {
	Query Query

	paginator  *Paginator
	enricher   *Enricher
	persister  *Persister
	store      storage.ListingStore
	aggregator *Aggregator
	logger     *utils.Logger

	// Exporter receives the run's listings when set.
	Exporter ListingExporter
	// AggregatePath is where the aggregate JSON goes; empty skips it.
	AggregatePath string
	// RecentChanges is how many price changes the report shows.
	RecentChanges int
}

// NewRunner creates a Runner. enricher may be nil to skip detail pages.
func NewRunner(q Query, paginator *Paginator, enricher *Enricher, persister *Persister,
	store storage.ListingStore, aggregator *Aggregator, logger *utils.Logger) *Runner {
	return &Runner{
		Query:         q,
		paginator:     paginator,
		enricher:      enricher,
		persister:     persister,
		store:         store,
		aggregator:    aggregator,
		logger:        logger.Component("runner"),
		RecentChanges: 10,
	}
}

// Run executes one run. The report and its summary are always returned.
// Listings collected before a page failure are still persisted and the page
// error is returned afterwards; a store failure ends the run immediately.
func (r *Runner) Run(ctx context.Context) (*models.Report, error) {
	start := time.Now()
	summary := &models.RunSummary{}
	report := &models.Report{Summary: summary, MinPrice: r.aggregator.MinPrice}
	finish := func(err error) (*models.Report, error) {
		summary.Elapsed = time.Since(start)
		summary.Err = err
		if err != nil {
			r.logger.Err(err, "[runner] Run failed after %s", summary.Elapsed.Round(time.Millisecond))
		} else {
			r.logger.Info("[runner] Run finished in %s", summary.Elapsed.Round(time.Millisecond))
		}
		return report, err
	}

	r.logger.Info("[runner] Searching %q over the last %d day(s)", r.Query.SearchTerm, r.Query.Days)

	dedup := NewDeduplicator(r.logger)
	res, pageErr := r.paginator.Collect(ctx, r.Query, dedup.Accept)
	summary.Pages = res.Pages
	summary.Found = dedup.Total()
	summary.Duplicates = dedup.Duplicates()
	listings := res.Listings
	r.logger.Info("[runner] %d pages, %d listings in window, %d duplicates (stopped: %s)",
		res.Pages, summary.Found, summary.Duplicates, res.StopReason)

	if r.enricher != nil && len(listings) > 0 {
		er := r.enricher.Enrich(ctx, listings)
		listings = er.Listings
		summary.DetailFailed = er.Failed
	}

	stats, err := r.persister.ApplyAll(ctx, listings)
	summary.New, summary.Changed = stats.New, stats.Changed
	summary.Unchanged, summary.Skipped = stats.Unchanged, stats.Skipped
	if err != nil {
		return finish(err)
	}

	if r.Exporter != nil && len(listings) > 0 {
		if err := r.Exporter.WriteListings(listings); err != nil {
			return finish(apperrors.NewStore("export", "write flat export", err))
		}
	}

	all, err := r.store.All(ctx)
	if err != nil {
		r.logger.Warn("[runner] Failed to read stored listings for aggregation, using this run only: %v", err)
		all = listings
	}
	report.Aggregates = r.aggregator.Aggregate(all)
	report.ByYear = r.aggregator.AggregateByYear(all)
	if r.AggregatePath != "" {
		if err := storage.WriteAggregatesJSON(r.AggregatePath, report.Aggregates); err != nil {
			return finish(apperrors.NewStore("aggregate", "write aggregate json", err))
		}
		r.logger.Info("[runner] Aggregates written to %s", r.AggregatePath)
	}

	if r.RecentChanges > 0 {
		changes, err := r.store.RecentChanges(ctx, "price", r.RecentChanges)
		if err != nil {
			r.logger.Warn("[runner] Failed to read recent price changes: %v", err)
		}
		report.RecentChanges = changes
	}

	return finish(pageErr)
}
