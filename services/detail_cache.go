package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"reklama5-scraper/models"
	"reklama5-scraper/services/cache"
	"reklama5-scraper/utils"
)

var _ DetailFetcher = (*CachedDetailFetcher)(nil)

// CachedDetailFetcher serves detail pages from a cache before asking the
// site. Cache failures fall through to the underlying fetcher.
type CachedDetailFetcher struct {
	next   DetailFetcher
	cache  cache.CacheService
	ttl    time.Duration
	logger *utils.Logger
}

// NewCachedDetailFetcher wraps next with c.
func NewCachedDetailFetcher(next DetailFetcher, c cache.CacheService, ttl time.Duration, logger *utils.Logger) *CachedDetailFetcher {
	return &CachedDetailFetcher{next: next, cache: c, ttl: ttl, logger: logger.Component("detail-cache")}
}

// detailCacheKey hashes the link because memcache keys are limited to 250
// bytes without spaces or control characters.
func detailCacheKey(link string) string {
	sum := sha256.Sum256([]byte(link))
	return "reklama5:detail:" + hex.EncodeToString(sum[:16])
}

func (c *CachedDetailFetcher) FetchDetail(ctx context.Context, link string) (models.Details, error) {
	key := detailCacheKey(link)

	data, err := c.cache.Get(key)
	switch {
	case err == nil:
		var d models.Details
		if jsonErr := json.Unmarshal(data, &d); jsonErr == nil {
			c.logger.Debug("[detail-cache] Hit %s", link)
			return d, nil
		}
		c.logger.Warn("[detail-cache] Dropping corrupt entry for %s", link)
		_ = c.cache.Delete(key)
	case !errors.Is(err, cache.ErrMiss):
		c.logger.Warn("[detail-cache] Get failed: %v", err)
	}

	d, err := c.next.FetchDetail(ctx, link)
	if err != nil {
		return d, err
	}
	if d.IsEmpty() {
		return d, nil
	}
	if data, err := json.Marshal(d); err == nil {
		if err := c.cache.Set(key, data, c.ttl); err != nil {
			c.logger.Warn("[detail-cache] Set failed: %v", err)
		}
	}
	return d, nil
}
