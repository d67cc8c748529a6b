package ember

import (
	"sync"
	"sync/atomic"

	"github.com/abdul-hamid-achik/ember/pkg/route"
)

// MatchCache memoizes resolve outcomes keyed by method and normalized path.
// Both matches and misses are cached. Entries never expire: a cache
// belongs to one immutable table.
type MatchCache struct {
	maxEntries int64
	items      sync.Map

	entries atomic.Int64
	hits    atomic.Int64
	misses  atomic.Int64
}

type cacheKey struct {
	method string
	path   string
}

type cacheEntry struct {
	index  int // -1 records a miss
	params route.Params
}

// NewMatchCache creates a cache. A positive maxEntries stops insertions
// once that many entries exist; existing entries are kept.
func NewMatchCache(maxEntries int) *MatchCache {
	return &MatchCache{maxEntries: int64(maxEntries)}
}

// Get returns the cached entry index and a copy of its params. found is
// false when nothing is cached; index is -1 for a cached miss.
func (c *MatchCache) Get(method, path string) (index int, params route.Params, found bool) {
	v, ok := c.items.Load(cacheKey{method, path})
	if !ok {
		c.misses.Add(1)
		return -1, nil, false
	}
	c.hits.Add(1)
	e := v.(*cacheEntry)
	return e.index, e.params.Clone(), true
}

// Put records an outcome. Concurrent writers of the same key store the
// same value, so the first one wins. A slot is reserved before storing,
// so the entry count never exceeds maxEntries.
func (c *MatchCache) Put(method, path string, index int, params route.Params) {
	key := cacheKey{method, path}
	if _, ok := c.items.Load(key); ok {
		return
	}
	if n := c.entries.Add(1); c.maxEntries > 0 && n > c.maxEntries {
		c.entries.Add(-1)
		return
	}
	e := &cacheEntry{index: index, params: params.Clone()}
	if _, loaded := c.items.LoadOrStore(key, e); loaded {
		c.entries.Add(-1)
	}
}

// Len returns the number of cached entries.
func (c *MatchCache) Len() int {
	return int(c.entries.Load())
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int64 `json:"entries"`
}

// HitRate returns hits over lookups, 0 before the first lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Stats returns the current counters.
func (c *MatchCache) Stats() Stats {
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.entries.Load(),
	}
}
