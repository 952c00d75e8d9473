package cache

import (
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

var _ CacheService = (*MemcacheService)(nil)

// MemcacheService implements CacheService using memcache.
type MemcacheService struct {
	client *memcache.Client
}

// NewMemcacheService creates a client for one or more memcached servers.
func NewMemcacheService(serverAddr ...string) *MemcacheService {
	client := memcache.New(serverAddr...)
	client.Timeout = 500 * time.Millisecond
	return &MemcacheService{client: client}
}

// Ping checks that every server is reachable.
func (m *MemcacheService) Ping() error {
	return m.client.Ping()
}

func (m *MemcacheService) Get(key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (m *MemcacheService) Set(key string, value []byte, expiration time.Duration) error {
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      value,
		Expiration: int32(expiration.Seconds()),
	})
}

func (m *MemcacheService) Delete(key string) error {
	err := m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
