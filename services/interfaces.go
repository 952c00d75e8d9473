package services

import (
	"context"

	"reklama5-scraper/models"
)

// PageSource returns the listings on one search result page.
type PageSource interface {
	FetchPage(ctx context.Context, pageURL string) ([]*models.Listing, error)
}

// DetailFetcher returns the attributes on a listing's detail page.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, link string) (models.Details, error)
}

// ChangePublisher is notified of new and changed listings.
type ChangePublisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}

// ListingExporter receives the listings of a run for a flat export.
type ListingExporter interface {
	WriteListings(listings []*models.Listing) error
}
