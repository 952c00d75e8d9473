package services

import (
	"context"
	"sync"
	"time"

	"reklama5-scraper/models"
	apperrors "reklama5-scraper/pkg/errors"
	"reklama5-scraper/storage"
	"reklama5-scraper/utils"
)

// PersistStats counts classification outcomes.
type PersistStats struct {
	New       int
	Changed   int
	Unchanged int
	// Skipped unchanged listings were not written at all.
	Skipped int
}

// Persister classifies observed listings against the store and writes them.
// All writes are serialized.
type Persister struct {
	store      storage.ListingStore
	classifier *Classifier
	logger     *utils.Logger

	// SkipUnchanged suppresses every write, including the last_seen
	// refresh, for unchanged listings.
	SkipUnchanged bool
	// Publisher is optional.
	Publisher ChangePublisher
	Now       func() time.Time

	mu sync.Mutex
}

// NewPersister creates a Persister writing to store.
func NewPersister(store storage.ListingStore, classifier *Classifier, logger *utils.Logger) *Persister {
	if classifier == nil {
		classifier = NewClassifier()
	}
	return &Persister{
		store:      store,
		classifier: classifier,
		logger:     logger.Component("persister"),
		Now:        time.Now,
	}
}

// Apply classifies and persists one listing. Failures are StoreErrors.
func (p *Persister) Apply(ctx context.Context, l *models.Listing) (models.Classification, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored, err := p.store.Get(ctx, l.ID)
	if err != nil {
		return models.Classification{}, apperrors.NewStore("get "+l.ID, "read stored listing", err)
	}

	class := p.classifier.Classify(l, stored)
	if class.Status == models.StatusUnchanged && p.SkipUnchanged {
		return class, nil
	}

	now := p.Now()
	merged := Merge(stored, l, class)
	if err := p.store.Upsert(ctx, merged, class, now); err != nil {
		return class, apperrors.NewStore("upsert "+l.ID, string(class.Status)+" listing", err)
	}

	if class.Status != models.StatusUnchanged {
		for _, ch := range class.Changes {
			p.logger.Debug("[persister] %s %s: %q -> %q", l.ID, ch.Field, ch.Old, ch.New)
		}
		p.publish(ctx, merged, class, now)
	}
	return class, nil
}

// ApplyAll persists listings in order and stops at the first StoreError.
func (p *Persister) ApplyAll(ctx context.Context, listings []*models.Listing) (PersistStats, error) {
	var stats PersistStats
	for _, l := range listings {
		class, err := p.Apply(ctx, l)
		if err != nil {
			p.logger.Err(err, "[persister] Aborting after %d listings", stats.New+stats.Changed+stats.Unchanged)
			return stats, err
		}
		switch class.Status {
		case models.StatusNew:
			stats.New++
		case models.StatusChanged:
			stats.Changed++
		default:
			stats.Unchanged++
			if p.SkipUnchanged {
				stats.Skipped++
			}
		}
	}
	p.logger.Info("[persister] %d new, %d changed, %d unchanged (%d skipped)",
		stats.New, stats.Changed, stats.Unchanged, stats.Skipped)
	return stats, nil
}

// Publishing is best effort; a failed event never fails the run.
func (p *Persister) publish(ctx context.Context, l *models.Listing, class models.Classification, now time.Time) {
	if p.Publisher == nil {
		return
	}
	event := models.ChangeEvent{
		ListingID:  l.ID,
		Status:     class.Status,
		Link:       l.Link,
		Make:       l.Make,
		Model:      l.Model,
		Price:      l.Price,
		Changes:    class.Changes,
		ObservedAt: now,
	}
	if err := p.Publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("[persister] Publish %s event for %s failed: %v", class.Status, l.ID, err)
	}
}
