package finance

import (
	"sync"
	"time"
)

// imageCache holds rendered PNGs for a short TTL so repeated commands skip rendering.
type imageCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]chartCacheEntry
}

func newImageCache(ttl time.Duration) *imageCache {
	return &imageCache{ttl: ttl, now: time.Now, entries: map[string]chartCacheEntry{}}
}

var chartImages = newImageCache(chartCacheTTL)

func (c *imageCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || !c.now().Before(entry.createdAt.Add(c.ttl)) {
		return nil, false
	}
	img := make([]byte, len(entry.image))
	copy(img, entry.image)
	return img, true
}

// set stores img and drops expired entries.
func (c *imageCache) set(key string, img []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.createdAt.Add(c.ttl)) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = chartCacheEntry{createdAt: now, image: img}
}

func cacheGet(key string) ([]byte, bool) { return chartImages.get(key) }

func cacheSet(key string, img []byte) { chartImages.set(key, img) }
