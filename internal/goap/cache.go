package goap

import (
	"container/list"
	"sync"

	"github.com/darianrosebrook/conscious-bot-experiment-sub011/internal/state"
)

// DefaultCacheSize bounds a plan cache when no size is configured.
const DefaultCacheSize = 128

// cacheKey identifies a cached plan by what was asked for and from where.
type cacheKey struct {
	goal  uint64
	state uint64
}

type cacheEntry struct {
	key  cacheKey
	plan *Plan
}

// CacheStats is a point-in-time counter snapshot.
type CacheStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Stale     uint64 `json:"stale"`
	Evictions uint64 `json:"evictions"`
	Entries   int    `json:"entries"`
}

// Cache is a bounded least-recently-used plan cache owned by exactly one
// planner. An entry is served only while its plan's lead action still has
// its preconditions satisfied by the fresh snapshot; anything staler is
// evicted on sight and counted as a miss.
type Cache struct {
	mu      sync.Mutex
	max     int
	order   *list.List
	entries map[cacheKey]*list.Element

	hits      uint64
	misses    uint64
	stale     uint64
	evictions uint64
}

// NewCache creates a cache bounded to max entries. Non-positive sizes fall
// back to DefaultCacheSize.
func NewCache(max int) *Cache {
	if max <= 0 {
		max = DefaultCacheSize
	}
	return &Cache{
		max:     max,
		order:   list.New(),
		entries: make(map[cacheKey]*list.Element),
	}
}

// Get returns the cached plan for (goalFP, stateFP) if present and still
// fresh. Freshness means the lead action's preconditions hold against the
// snapshot the caller just observed; empty plans are trivially fresh.
func (c *Cache) Get(goalFP, stateFP uint64, fresh state.Snapshot) (*Plan, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{goal: goalFP, state: stateFP}
	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	plan := elem.Value.(*cacheEntry).plan
	if !plan.IsEmpty() && !fresh.SatisfiesAll(plan.Steps[0].Action.Preconditions) {
		c.order.Remove(elem)
		delete(c.entries, key)
		c.stale++
		c.misses++
		return nil, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return plan, true
}

// Put stores a plan, evicting the least-recently-used entry when full.
func (c *Cache) Put(goalFP, stateFP uint64, plan *Plan) {
	if plan == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{goal: goalFP, state: stateFP}
	if elem, ok := c.entries[key]; ok {
		elem.Value.(*cacheEntry).plan = plan
		c.order.MoveToFront(elem)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, plan: plan})
	for len(c.entries) > c.max {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
		c.evictions++
	}
}

// Invalidate drops every entry for the given goal fingerprint. The executor
// calls this when the upstream subgoal moves on.
func (c *Cache) Invalidate(goalFP uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, elem := range c.entries {
		if key.goal == goalFP {
			c.order.Remove(elem)
			delete(c.entries, key)
		}
	}
}

// Purge empties the cache, keeping counters.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[cacheKey]*list.Element)
}

// Len returns the number of cached plans.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns current counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Hits:      c.hits,
		Misses:    c.misses,
		Stale:     c.stale,
		Evictions: c.evictions,
		Entries:   len(c.entries),
	}
}
