package cache

import (
	"fmt"

	"github.com/Meesho/BharatMLStack/predator-core/pkg/logger"
)

func InitRistrettoCache(cacheSize, cacheTTL int64) *Cache {
	c, err := NewCache(cacheSize, cacheTTL)
	if err != nil {
		logger.Panic("failed to create ristretto cache", err)
	}
	logger.Info(fmt.Sprintf("Ristretto cache initialized with size %d and ttl %ds", cacheSize, cacheTTL))
	return c
}
