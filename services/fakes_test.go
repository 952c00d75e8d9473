package services

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"reklama5-scraper/models"
	apperrors "reklama5-scraper/pkg/errors"
	"reklama5-scraper/utils"
)

var testNow = time.Date(2024, 1, 5, 12, 0, 0, 0, time.Local)

const testTemplate = "page={page_num}&q={search_term}"

func testLogger() *utils.Logger { return utils.NewNopLogger() }

func noSleep(context.Context, time.Duration) error { return nil }

func car(id, date string, price *int) *models.Listing {
	return &models.Listing{
		ID:    id,
		Link:  "https://www.reklama5.mk/AdDetails?ad=" + id,
		Make:  "Volkswagen",
		Model: "Golf",
		Year:  models.Int(2016),
		Price: price,
		Date:  date,
		City:  "Скопје",
	}
}

var (
	_ PageSource      = (*pageSource)(nil)
	_ DetailFetcher   = (*detailFetcher)(nil)
	_ ChangePublisher = (*recordingPublisher)(nil)
)

// pageSource serves listings keyed by page number. Missing pages are empty.
type pageSource struct {
	mu    sync.Mutex
	pages map[int][]*models.Listing
	errs  map[int]error
	calls []string
}

func newPageSource(pages map[int][]*models.Listing) *pageSource {
	return &pageSource{pages: pages, errs: map[int]error{}}
}

func (s *pageSource) FetchPage(_ context.Context, pageURL string) ([]*models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, pageURL)

	rest, _ := strings.CutPrefix(pageURL, "page=")
	num, _, _ := strings.Cut(rest, "&")
	page, _ := strconv.Atoi(num)
	if err := s.errs[page]; err != nil {
		return nil, err
	}
	var out []*models.Listing
	for _, l := range s.pages[page] {
		out = append(out, l.Clone())
	}
	return out, nil
}

// detailFetcher returns fixed details and tracks concurrent calls.
type detailFetcher struct {
	delay    time.Duration
	fail     map[string]bool
	empty    map[string]bool
	calls    atomic.Int64
	inFlight atomic.Int64
	peak     atomic.Int64
}

func (f *detailFetcher) FetchDetail(_ context.Context, link string) (models.Details, error) {
	f.calls.Add(1)
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if cur <= p || f.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.fail[link] {
		return models.Details{}, apperrors.NewFetch(link, "unexpected status code: 500", nil)
	}
	if f.empty[link] {
		return models.Details{}, nil
	}
	return models.Details{Fuel: "Дизел", Gearbox: "Рачен", KW: models.Int(81)}, nil
}

type recordingPublisher struct {
	mu    sync.Mutex
	events []models.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e models.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}
