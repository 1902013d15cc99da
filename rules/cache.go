package rules

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type ttlProgramCache struct {
	cache *ttlcache.Cache[string, any]
}

// NewTTLCache returns a ProgramCache whose entries expire ttl after their last
// write. A zero ttl keeps entries forever.
func NewTTLCache(ttl time.Duration) ProgramCache {
	opts := []ttlcache.Option[string, any]{}
	if ttl > 0 {
		opts = append(opts, ttlcache.WithTTL[string, any](ttl))
	}
	return &ttlProgramCache{cache: ttlcache.New[string, any](opts...)}
}

func (c *ttlProgramCache) Get(key string) (any, bool) {
	item := c.cache.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (c *ttlProgramCache) Set(key string, value any) {
	c.cache.Set(key, value, ttlcache.DefaultTTL)
}
