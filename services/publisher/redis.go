package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"reklama5-scraper/models"
)

var _ Publisher = (*RedisPublisher)(nil)

// RedisPublisher appends change events to a Redis stream.
type RedisPublisher struct {
	client    *redis.Client
	stream    string
	maxLength int64
}

// NewRedisPublisher creates a publisher for stream. maxLength > 0 trims the
// stream approximately on every append.
func NewRedisPublisher(addr string, db int, stream string, maxLength int64) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &RedisPublisher{client: client, stream: stream, maxLength: maxLength}
}

// Ping checks the connection.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Publish adds one entry with the listing id, status and the JSON event.
func (p *RedisPublisher) Publish(ctx context.Context, event models.ChangeEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("publisher: marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"listing_id": event.ListingID,
			"status":     string(event.Status),
			"event":      string(payload),
		},
	}
	if p.maxLength > 0 {
		args.MaxLen = p.maxLength
		args.Approx = true
	}
	return p.client.XAdd(ctx, args).Err()
}

// Close closes the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
