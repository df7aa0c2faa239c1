package summary

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// Cached summaries live long enough to cover reruns and restarts within a
// publishing day.
const cacheTTL = 24 * time.Hour

type cacheItem struct {
	result    Result
	expiresAt time.Time
}

// cache keys summaries by a hash of title plus content, so an edited article
// is summarized again while an identical rerun is free.
type cache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
}

func newCache() *cache {
	return &cache{items: make(map[string]cacheItem)}
}

func cacheKey(title, content string) string {
	h := sha256.Sum256([]byte(title + "\x00" + content))
	return hex.EncodeToString(h[:])
}

func (c *cache) get(title, content string) (Result, bool) {
	c.mu.RLock()
	item, ok := c.items[cacheKey(title, content)]
	c.mu.RUnlock()

	if !ok || time.Now().After(item.expiresAt) {
		return Result{}, false
	}
	return item.result, true
}

func (c *cache) set(title, content string, r Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[cacheKey(title, content)] = cacheItem{
		result:    r,
		expiresAt: time.Now().Add(cacheTTL),
	}
}
