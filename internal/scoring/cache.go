package scoring

import (
	"context"
	"os"
	"sync"
	"time"
)

type cacheEntry struct {
	size    int64
	modTime time.Time
	score   float64
}

// Cache memoizes scores per path. An entry is reused only while the file's
// size and modification time are unchanged.
type Cache struct {
	mu      sync.RWMutex
	next    Scorer
	entries map[string]cacheEntry
}

// NewCache wraps next with a score cache.
func NewCache(next Scorer) *Cache {
	return &Cache{
		next:    next,
		entries: make(map[string]cacheEntry),
	}
}

// Score returns the cached score for path or computes and stores it.
func (c *Cache) Score(ctx context.Context, path string) (float64, error) {
	info, err := os.Stat(path)
	if err != nil {
		c.Evict(path)
		return c.next.Score(ctx, path)
	}

	c.mu.RLock()
	entry, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && entry.size == info.Size() && entry.modTime.Equal(info.ModTime()) {
		return entry.score, nil
	}

	score, err := c.next.Score(ctx, path)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.entries[path] = cacheEntry{size: info.Size(), modTime: info.ModTime(), score: score}
	c.mu.Unlock()
	return score, nil
}

// Evict removes the entry for path.
func (c *Cache) Evict(path string) {
	c.mu.Lock()
	delete(c.entries, path)
	c.mu.Unlock()
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
