package services

import (
	"strings"
	"sync"

	"reklama5-scraper/models"
	"reklama5-scraper/utils"
)

// Deduplicator drops listings whose id was already seen during the run. The
// first occurrence wins.
type Deduplicator struct {
	logger *utils.Logger
	seen   *utils.IDSet

	mu         sync.Mutex
	total      int
	duplicates int
}

// NewDeduplicator creates an empty run-scoped Deduplicator.
func NewDeduplicator(logger *utils.Logger) *Deduplicator {
	return &Deduplicator{logger: logger, seen: utils.NewIDSet()}
}

// Accept reports whether l is the first listing with its id. Listings without
// an id are always accepted.
func (d *Deduplicator) Accept(l *models.Listing) bool {
	d.mu.Lock()
	d.total++
	d.mu.Unlock()

	id := strings.TrimSpace(l.ID)
	if id == "" {
		d.logger.Warn("[dedup] Listing without id kept: %s", l.Link)
		return true
	}
	if !d.seen.Add(id) {
		d.mu.Lock()
		d.duplicates++
		d.mu.Unlock()
		d.logger.Debug("[dedup] Duplicate id skipped: %s", id)
		return false
	}
	return true
}

// Filter returns the accepted listings in input order.
func (d *Deduplicator) Filter(listings []*models.Listing) []*models.Listing {
	out := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if d.Accept(l) {
			out = append(out, l)
		}
	}
	d.logger.Info("[dedup] Kept %d of %d listings (dropped %d duplicates)",
		len(out), len(listings), len(listings)-len(out))
	return out
}

// Total is the number of listings offered so far.
func (d *Deduplicator) Total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.total
}

// Duplicates is the number of listings dropped so far.
func (d *Deduplicator) Duplicates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.duplicates
}
