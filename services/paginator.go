package services

import (
	"context"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"reklama5-scraper/models"
	apperrors "reklama5-scraper/pkg/errors"
	"reklama5-scraper/utils"
)

// Query describes one search to paginate through.
type Query struct {
	SearchTerm  string
	URLTemplate string
	Days        int
	// Limit caps accepted listings; 0 means unlimited.
	Limit    int
	MaxPages int
}

// Stop reasons reported in PageResult.
const (
	StopEmptyPage = "empty page"
	StopOlder     = "older than window"
	StopLimit     = "limit reached"
	StopMaxPages  = "max pages"
	StopError     = "error"
)

// PageResult is what pagination collected, possibly partial.
type PageResult struct {
	Listings   []*models.Listing
	Pages      int
	StopReason string
}

// Paginator walks result pages 1..N until the results run out, fall outside
// the day window, or the limit is reached.
type Paginator struct {
	source PageSource
	logger *utils.Logger

	// Delay is applied between page requests.
	Delay utils.DelayPolicy
	Rand  func() float64
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// NewPaginator creates a Paginator with no inter-page delay.
func NewPaginator(source PageSource, logger *utils.Logger) *Paginator {
	return &Paginator{
		source: source,
		logger: logger.Component("paginator"),
		Delay:  utils.NoDelay(),
		Rand:   rand.Float64,
		Sleep:  utils.SleepContext,
		Now:    time.Now,
	}
}

// Collect fetches pages in order. Only in-window listings for which accept
// returns true are kept and counted against the limit; accept may be nil.
// On a page failure the listings collected so far are returned together with
// the error.
func (p *Paginator) Collect(ctx context.Context, q Query, accept func(*models.Listing) bool) (*PageResult, error) {
	res := &PageResult{}
	cutoff := p.Now().Add(-time.Duration(q.Days) * 24 * time.Hour)
	maxPages := q.MaxPages
	if maxPages <= 0 {
		maxPages = 199
	}

	for page := 1; page <= maxPages; page++ {
		if page > 1 {
			if err := p.Sleep(ctx, p.Delay.Next(p.Rand)); err != nil {
				res.StopReason = StopError
				return res, err
			}
		}

		pageURL := ExpandTemplate(q.URLTemplate, q.SearchTerm, page)
		records, err := p.source.FetchPage(ctx, pageURL)
		if err != nil {
			res.StopReason = StopError
			if apperrors.TypeOf(err) == "" && ctx.Err() == nil {
				err = apperrors.NewFetch("page "+strconv.Itoa(page), "fetch results", err)
			}
			p.logger.Error("[paginator] Page %d failed: %v", page, err)
			return res, err
		}
		res.Pages++

		if len(records) == 0 {
			p.logger.Info("[paginator] No listings on page %d, stopping", page)
			res.StopReason = StopEmptyPage
			return res, nil
		}

		kept, older := 0, false
		for _, r := range records {
			if isOlder(r, cutoff) {
				older = true
				continue
			}
			if !inWindow(r, cutoff) {
				continue
			}
			if accept != nil && !accept(r) {
				continue
			}
			res.Listings = append(res.Listings, r)
			kept++
			if q.Limit > 0 && len(res.Listings) >= q.Limit {
				p.logger.Info("[paginator] Page %02d (%02d kept), limit of %d reached", page, kept, q.Limit)
				res.StopReason = StopLimit
				return res, nil
			}
		}
		p.logger.Info("[paginator] Page %02d (%02d of %02d kept)", page, kept, len(records))

		if older {
			p.logger.Info("[paginator] Listing older than %d days on page %d, stopping", q.Days, page)
			res.StopReason = StopOlder
			return res, nil
		}
	}

	res.StopReason = StopMaxPages
	return res, nil
}

// ExpandTemplate fills the {search_term} and {page_num} placeholders.
func ExpandTemplate(tmpl, searchTerm string, page int) string {
	return strings.NewReplacer(
		"{search_term}", url.QueryEscape(searchTerm),
		"{page_num}", strconv.Itoa(page),
	).Replace(tmpl)
}

// Promoted listings are pinned regardless of age and never count as in
// window or as older; neither do listings whose date cannot be read.
func inWindow(l *models.Listing, cutoff time.Time) bool {
	if l.Promoted {
		return false
	}
	t, ok := l.PostedAt()
	return ok && !t.Before(cutoff)
}

func isOlder(l *models.Listing, cutoff time.Time) bool {
	if l.Promoted {
		return false
	}
	t, ok := l.PostedAt()
	return ok && t.Before(cutoff)
}
