package guardrail

import (
	"sync"
	"time"

	"github.com/erni-gruppe/building-agents/internal/util"
)

// Default cache dimensions, matching the production guardrail settings.
const (
	DefaultCacheSize = 1000
	DefaultCacheTTL  = time.Hour
)

// VerdictCache is a bounded TTL cache for guardrail verdicts keyed by
// (guardrail name, input fingerprint). Identical inputs across any
// conversation share one entry, so repeated greetings or copy-pasted spam
// cost one upstream classification instead of one per turn.
type VerdictCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	max     int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	verdict   Verdict
	expiresAt time.Time
}

// NewVerdictCache creates a cache holding at most max entries for ttl each.
func NewVerdictCache(max int, ttl time.Duration) *VerdictCache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &VerdictCache{
		entries: make(map[string]cacheEntry),
		max:     max,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key derives the cache key for a guardrail and input. Inputs are
// fingerprinted after whitespace and case normalization.
func Key(guardrailName, input string) string {
	return guardrailName + ":" + util.Fingerprint(input)
}

// Get returns a cached verdict if present and not expired.
func (c *VerdictCache) Get(key string) (Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Verdict{}, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return Verdict{}, false
	}
	return entry.verdict, true
}

// Put stores a verdict. When the cache is full, expired entries are swept
// first; if still full, an arbitrary entry is evicted to stay bounded.
func (c *VerdictCache) Put(key string, v Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.max {
		now := c.now()
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
			}
		}
		for k := range c.entries {
			if len(c.entries) < c.max {
				break
			}
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{verdict: v, expiresAt: c.now().Add(c.ttl)}
}

// Len reports the current entry count.
func (c *VerdictCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
