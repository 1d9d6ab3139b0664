package dedupe

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache guards against Kafka redelivering a trigger event that this process
// already started. It is scoped to the process lifetime and never consulted
// for run results.
type Cache struct {
	items *gocache.Cache
}

// NewCache creates a cache whose claims expire after ttl.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{items: gocache.New(ttl, 2*ttl)}
}

// Claim marks key as in flight. It reports false when the key was already
// claimed inside the ttl window. Check and mark happen atomically.
func (c *Cache) Claim(key string) bool {
	return c.items.Add(key, struct{}{}, gocache.DefaultExpiration) == nil
}

// Release forgets key so a later delivery is processed again.
func (c *Cache) Release(key string) {
	c.items.Delete(key)
}

// Len returns the number of held claims. Expired claims count until the
// janitor removes them. Consumers export it as a gauge after every message.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}
