package publisher

import (
	"context"

	"reklama5-scraper/models"
)

// Publisher pushes listing change events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
	Close() error
}
