package cache

import (
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("cache: miss")

// CacheService is a byte-oriented key/value cache with expiry.
type CacheService interface {
	// Get returns ErrMiss when the key is absent.
	Get(key string) ([]byte, error)
	Set(key string, value []byte, expiration time.Duration) error
	Delete(key string) error
}
