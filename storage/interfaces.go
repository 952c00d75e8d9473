package storage

import (
	"context"
	"time"

	"reklama5-scraper/models"
)

// ListingStore is the interface any persistence backend must satisfy.
//
// Upsert receives the merged record and its classification:
//   - new: insert with created_at, updated_at and last_seen set to now
//   - changed: overwrite, set updated_at and last_seen, append change rows
//   - unchanged: refresh detail fields and last_seen, keep updated_at
type ListingStore interface {
	// Get returns nil, nil when id is unknown.
	Get(ctx context.Context, id string) (*models.Listing, error)
	Upsert(ctx context.Context, l *models.Listing, class models.Classification, now time.Time) error
	All(ctx context.Context) ([]*models.Listing, error)
	// RecentChanges lists change rows newest first; an empty field means all.
	RecentChanges(ctx context.Context, field string, limit int) ([]*models.ListingChange, error)
	Close() error
}
