package store

import (
	"context"
	"sync"

	"scrollsafe/internal/media"
)

// MemoryCache is the session-local ephemeral verdict cache. Entries live for
// the process lifetime only.
type MemoryCache struct {
	mu       sync.RWMutex
	verdicts map[string]media.Verdict
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{verdicts: make(map[string]media.Verdict)}
}

func (c *MemoryCache) Get(_ context.Context, platform, videoID string) (*media.Verdict, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	verdict, ok := c.verdicts[cacheKey(platform, videoID)]
	if !ok {
		return nil, nil
	}
	return &verdict, nil
}

func (c *MemoryCache) Set(_ context.Context, platform, videoID string, verdict media.Verdict) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verdicts[cacheKey(platform, videoID)] = verdict
	return nil
}

// Delete removes a cached verdict. Used when an authoritative result
// supersedes a stale ephemeral one.
func (c *MemoryCache) Delete(_ context.Context, platform, videoID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.verdicts, cacheKey(platform, videoID))
}

func (c *MemoryCache) Close() error { return nil }

func cacheKey(platform, videoID string) string {
	return "video:" + platform + ":" + videoID
}
