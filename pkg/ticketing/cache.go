package ticketing

import (
	"sync"
	"time"
)

// issueRef is a cached {issueKey, timestamp} entry.
type issueRef struct {
	IssueKey  string
	CreatedAt time.Time
}

// dedupCache maps a composite "metric-level" key to the most recently
// created issue for it, within window. It is the same Redis-less
// map-with-purge shape as the alert pipeline's in-memory dedup fallback,
// scoped here to ticket creation rather than alert emission.
type dedupCache struct {
	mu     sync.Mutex
	window time.Duration
	byKey  map[string]issueRef
}

func newDedupCache(window time.Duration) *dedupCache {
	return &dedupCache{window: window, byKey: make(map[string]issueRef)}
}

// Lookup returns the cached issue for key if it was created within window,
// else reports ok=false.
func (c *dedupCache) Lookup(key string, now time.Time) (issueRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, ok := c.byKey[key]
	if !ok || now.Sub(ref.CreatedAt) >= c.window {
		return issueRef{}, false
	}
	return ref, true
}

// Store records a newly created issue for key.
func (c *dedupCache) Store(key, issueKey string, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[key] = issueRef{IssueKey: issueKey, CreatedAt: now}
	for k, ref := range c.byKey {
		if now.Sub(ref.CreatedAt) >= c.window {
			delete(c.byKey, k)
		}
	}
}
