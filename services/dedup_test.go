package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"reklama5-scraper/models"
)

func TestDeduplicatorFirstSeenWins(t *testing.T) {
	first := car("A", "2024-01-05 10:00", models.Int(4000))
	second := car("A", "2024-01-05 10:00", models.Int(9999))
	d := NewDeduplicator(testLogger())

	out := d.Filter([]*models.Listing{first, car("B", "", nil), second, car("C", "", nil), car("B", "", nil)})

	assert.Equal(t, []string{"A", "B", "C"}, ids(out))
	assert.Same(t, first, out[0])
	assert.Equal(t, 5, d.Total())
	assert.Equal(t, 2, d.Duplicates())
	assert.Equal(t, d.Total(), d.Duplicates()+len(out))
}

func TestDeduplicatorKeepsListingsWithoutID(t *testing.T) {
	d := NewDeduplicator(testLogger())
	assert.True(t, d.Accept(&models.Listing{}))
	assert.True(t, d.Accept(&models.Listing{ID: "  "}))
	assert.Equal(t, 0, d.Duplicates())
}
