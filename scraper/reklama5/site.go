package reklama5

import (
	"bytes"
	"context"
	"time"

	"reklama5-scraper/models"
	"reklama5-scraper/utils"
)

// Site turns fetched reklama5 pages into listings.
type Site struct {
	fetcher Fetcher
	logger  *utils.Logger

	// Now is used to resolve relative date labels.
	Now func() time.Time
}

// NewSite wraps fetcher for the reklama5 markup.
func NewSite(fetcher Fetcher, logger *utils.Logger) *Site {
	return &Site{
		fetcher: fetcher,
		logger:  logger.Component("reklama5"),
		Now:     time.Now,
	}
}

// FetchPage downloads and parses one search result page.
func (s *Site) FetchPage(ctx context.Context, pageURL string) ([]*models.Listing, error) {
	body, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	listings, err := ParseListingPage(bytes.NewReader(body), s.Now())
	if err != nil {
		return nil, err
	}
	s.logger.Debug("[reklama5] %d ads on %s", len(listings), shorten(pageURL))
	return listings, nil
}

// FetchDetail downloads and parses the detail page at link.
func (s *Site) FetchDetail(ctx context.Context, link string) (models.Details, error) {
	body, err := s.fetcher.Fetch(ctx, link)
	if err != nil {
		return models.Details{}, err
	}
	return ParseDetailPage(bytes.NewReader(body))
}
