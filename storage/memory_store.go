package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"reklama5-scraper/models"
)

var _ ListingStore = (*MemoryStore)(nil)

// MemoryStore keeps listings in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	listings map[string]*models.Listing
	changes  []*models.ListingChange
	nextID   int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{listings: make(map[string]*models.Listing)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, nil
	}
	c := l.Clone()
	c.Hash = c.ComparisonHash()
	return c, nil
}

func (m *MemoryStore) Upsert(_ context.Context, l *models.Listing, class models.Classification, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apply(l, class, now)
	return nil
}

// apply mutates state and returns the stored record and any appended change
// rows. Callers hold the write lock.
func (m *MemoryStore) apply(l *models.Listing, class models.Classification, now time.Time) (*models.Listing, []*models.ListingChange) {
	rec := l.Clone()
	rec.Hash = rec.ComparisonHash()
	prev, exists := m.listings[l.ID]

	switch {
	case !exists || class.Status == models.StatusNew:
		rec.CreatedAt, rec.UpdatedAt, rec.LastSeen = now, now, now
		if exists {
			rec.CreatedAt = prev.CreatedAt
		}
	case class.Status == models.StatusChanged:
		rec.CreatedAt, rec.UpdatedAt, rec.LastSeen = prev.CreatedAt, now, now
	default:
		rec.CreatedAt, rec.UpdatedAt, rec.LastSeen = prev.CreatedAt, prev.UpdatedAt, now
	}
	m.listings[rec.ID] = rec

	var added []*models.ListingChange
	if exists && class.Status == models.StatusChanged {
		for _, ch := range class.Changes {
			m.nextID++
			row := &models.ListingChange{
				ID:        m.nextID,
				ListingID: rec.ID,
				Field:     ch.Field,
				OldValue:  ch.Old,
				NewValue:  ch.New,
				ChangedAt: now,
			}
			m.changes = append(m.changes, row)
			added = append(added, row)
		}
	}
	return rec, added
}

// load inserts a record as-is, replacing any earlier one with the same id.
func (m *MemoryStore) load(l *models.Listing) {
	m.listings[l.ID] = l
}

func (m *MemoryStore) loadChange(c *models.ListingChange) {
	if c.ID == 0 {
		c.ID = m.nextID + 1
	}
	if c.ID > m.nextID {
		m.nextID = c.ID
	}
	m.changes = append(m.changes, c)
}

// All returns every listing ordered by id.
func (m *MemoryStore) All(_ context.Context) ([]*models.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Listing, 0, len(m.listings))
	for _, l := range m.listings {
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) RecentChanges(_ context.Context, field string, limit int) ([]*models.ListingChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.ListingChange
	for i := len(m.changes) - 1; i >= 0; i-- {
		c := m.changes[i]
		if field != "" && c.Field != field {
			continue
		}
		cp := *c
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
