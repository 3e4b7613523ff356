package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

type RistrettoConfig struct {
	Ttl  int64 `mapstructure:"ttlSec"`    // expiration time in seconds
	Size int64 `mapstructure:"cacheSize"` // maximum number of items to be cached
}

// Cache counts every entry with cost 1, so size is the maximum number of
// entries.
type Cache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewCache(size int64, ttl int64) (*Cache, error) {
	if size <= 0 {
		size = 1
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        10 * size,
		MaxCost:            size,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{cache: c, ttl: time.Duration(ttl) * time.Second}, nil
}

// SetWithTTL stores value with the cache's configured expiry. A zero TTL
// keeps the entry until it is evicted or deleted.
func (c *Cache) SetWithTTL(key string, value interface{}) bool {
	if c.ttl <= 0 {
		return c.Set(key, value)
	}
	return c.cache.SetWithTTL(key, value, 1, c.ttl)
}

func (c *Cache) Set(key string, value interface{}) bool {
	return c.cache.Set(key, value, 1)
}

func (c *Cache) Get(key string) (interface{}, bool) {
	return c.cache.Get(key)
}

func (c *Cache) Del(key string) {
	c.cache.Del(key)
}

func (c *Cache) Clear() {
	c.cache.Clear()
}

// Wait blocks until buffered writes are applied.
func (c *Cache) Wait() {
	c.cache.Wait()
}

func (c *Cache) Close() {
	c.cache.Close()
}
