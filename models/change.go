package models

import "time"

// Status is the outcome of comparing an observed listing with the store.
type Status string

const (
	StatusNew       Status = "new"
	StatusChanged   Status = "changed"
	StatusUnchanged Status = "unchanged"
)

// FieldChange is one differing comparison-set field.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// Classification is what the classifier decided for one listing.
type Classification struct {
	Status  Status
	Changes []FieldChange
}

// ListingChange is an append-only change log row.
type ListingChange struct {
	ID        int64
	ListingID string
	Field     string
	OldValue  string
	NewValue  string
	ChangedAt time.Time
}

// ChangeEvent is published for every new or changed listing.
type ChangeEvent struct {
	ListingID  string        `json:"listing_id"`
	Status     Status        `json:"status"`
	Link       string        `json:"link"`
	Make       string        `json:"make"`
	Model      string        `json:"model"`
	Price      *int          `json:"price"`
	Changes    []FieldChange `json:"changes,omitempty"`
	ObservedAt time.Time     `json:"observed_at"`
}
