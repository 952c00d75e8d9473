package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reklama5-scraper/models"
)

// Requires a Redis on localhost:6379; skipped otherwise.
func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	const stream = "reklama5_test_changes"

	p := NewRedisPublisher("localhost:6379", 0, stream, 1000)
	defer p.Close()
	if err := p.Ping(ctx); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()
	require.NoError(t, client.Del(ctx, stream).Err())

	price := 4500
	event := models.ChangeEvent{
		ListingID:  "5551",
		Status:     models.StatusChanged,
		Price:      &price,
		Changes:    []models.FieldChange{{Field: "price", Old: "4000", New: "4500"}},
		ObservedAt: time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(ctx, event))

	entries, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "5551", entries[0].Values["listing_id"])
	assert.Equal(t, "changed", entries[0].Values["status"])

	var got models.ChangeEvent
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["event"].(string)), &got))
	assert.Equal(t, event.Changes, got.Changes)
	assert.Equal(t, 4500, *got.Price)
}
