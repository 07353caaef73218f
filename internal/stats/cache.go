package stats

import (
	"sync"
	"time"
)

// summaryCache holds the last computed summary with an expiry, so dashboard
// polling doesn't rescan the collections on every request.
type summaryCache struct {
	mu        sync.RWMutex
	data      *Summary
	expiresAt time.Time
}

// get returns the cached summary, or nil when empty or expired.
func (c *summaryCache) get() *Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.data == nil || time.Now().After(c.expiresAt) {
		return nil
	}
	return c.data
}

// set stores a freshly built summary with the given lifetime.
func (c *summaryCache) set(s *Summary, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = s
	c.expiresAt = time.Now().Add(ttl)
}

// invalidate drops the cached summary. Called after every mutation.
func (c *summaryCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
}
