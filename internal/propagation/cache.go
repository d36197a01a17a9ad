package propagation

import "sync"

// pairKey canonicalizes an unordered pair of grid locators so that
// lookup(a,b) and lookup(b,a) always hit the same cache slot — the
// symmetric-insertion requirement of spec.md §4.3 and the symmetry
// invariant of spec.md §8, satisfied by construction rather than by
// writing the entry twice.
type pairKey struct{ a, b string }

func makePairKey(gridA, gridB string) pairKey {
	if gridA <= gridB {
		return pairKey{gridA, gridB}
	}
	return pairKey{gridB, gridA}
}

type cacheEntry struct {
	value float64
	epoch uint64
}

// PairCache memoizes pair signal-strength scores, bounded by the current
// ionospheric epoch: a stale entry (epoch != current) is treated as a
// miss and the whole cache is dropped on any epoch change, per spec.md
// §3 and §8 ("pair_cache.size == 0 before any subsequent lookup
// completes" after an SFI/K/season mutation).
type PairCache struct {
	mu      sync.Mutex
	entries map[pairKey]cacheEntry
}

// NewPairCache returns an empty PairCache.
func NewPairCache() *PairCache {
	return &PairCache{entries: make(map[pairKey]cacheEntry)}
}

// Get returns the cached score for (gridA, gridB) if present and still
// current for epoch.
func (c *PairCache) Get(gridA, gridB string, epoch uint64) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[makePairKey(gridA, gridB)]
	if !ok || e.epoch != epoch {
		return 0, false
	}
	return e.value, true
}

// Put stores value for (gridA, gridB) under epoch.
func (c *PairCache) Put(gridA, gridB string, epoch uint64, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[makePairKey(gridA, gridB)] = cacheEntry{value: value, epoch: epoch}
}

// Clear drops every entry, called on every ionospheric epoch change.
func (c *PairCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[pairKey]cacheEntry)
}

// Size returns the number of cached pairs, used by tests asserting the
// "cache drained on epoch change" invariant.
func (c *PairCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
