package hnsw

import (
	"math/bits"
)

// DistanceFunc computes the distance between two items. It must be a total
// metric: d(x,y) == d(y,x), d(x,x) == 0, and it must never return NaN.
type DistanceFunc[T any] func(a, b T) float32

// costFunc is the traveling-cost oracle for a fixed target: it maps a node
// id to its distance from the target.
type costFunc func(id uint32) float32

// oracle computes distances between stored items, optionally through a
// direct-mapped pair cache. The cache is written only under the writer gate;
// query-time oracles bypass it entirely.
type oracle[T any] struct {
	dist  DistanceFunc[T]
	item  func(id uint32) T
	cache *pairCache
}

func newOracle[T any](dist DistanceFunc[T], item func(id uint32) T) *oracle[T] {
	return &oracle[T]{dist: dist, item: item}
}

// between returns the distance between two stored items, consulting the pair
// cache when one is attached.
func (o *oracle[T]) between(i, j uint32) float32 {
	if o.cache == nil {
		return o.dist(o.item(i), o.item(j))
	}
	key := pairKey(i, j)
	if d, ok := o.cache.lookup(key); ok {
		return d
	}
	d := o.dist(o.item(i), o.item(j))
	o.cache.store(key, d)
	return d
}

// costTo returns a one-off traveling-cost oracle for a target item that is
// not part of the index (the query side routes through here). It never
// touches the cache.
func (o *oracle[T]) costTo(target T) costFunc {
	return func(id uint32) float32 {
		return o.dist(target, o.item(id))
	}
}

// costToNode returns the traveling-cost oracle for a stored item, cached.
func (o *oracle[T]) costToNode(id uint32) costFunc {
	return func(other uint32) float32 {
		return o.between(id, other)
	}
}

// resizeCache replaces the cache with one sized for pointsCount items,
// carrying live entries over. Shrinking is lossy. pointsCount == 0 drops the
// cache.
func (o *oracle[T]) resizeCache(pointsCount int) {
	if pointsCount <= 0 {
		o.cache = nil
		return
	}
	next := newPairCache(pointsCount)
	if o.cache != nil {
		next.fillFrom(o.cache)
	}
	o.cache = next
}

// seedCache installs a fresh cache with roughly entries slots.
func (o *oracle[T]) seedCache(entries int) {
	if entries <= 0 {
		o.cache = nil
		return
	}
	o.cache = newPairCacheSized(nextPowerOfTwo(uint64(entries)))
}

// cacheHits reports the number of cache hits so far.
func (o *oracle[T]) cacheHits() uint64 {
	if o.cache == nil {
		return 0
	}
	return o.cache.hits
}

// pairKey maps an unordered id pair to its canonical key: the triangular
// number of the larger id plus the smaller. pairKey(i,j) == pairKey(j,i).
func pairKey(i, j uint32) uint64 {
	hi, lo := uint64(i), uint64(j)
	if lo > hi {
		hi, lo = lo, hi
	}
	return hi*(hi+1)/2 + lo
}

// emptySlot marks an unoccupied cache slot. No valid pair key reaches it:
// keys are at most tri(2^32-1) + 2^32-1 = 2^63 + 2^31 - 1.
const emptySlot = ^uint64(0)

// pairCache is a direct-mapped, lossy distance cache: one slot per hash,
// overwritten on collision. It trades precision of retention for a bounded
// footprint and branch-free lookups.
type pairCache struct {
	keys []uint64
	vals []float32
	mask uint64
	hits uint64
}

// newPairCache sizes the table for pointsCount items: the next power of two
// of pointsCount*(pointsCount+1)/2, clamped to maxDistanceCacheEntries.
func newPairCache(pointsCount int) *pairCache {
	pairs := uint64(pointsCount) * (uint64(pointsCount) + 1) / 2
	return newPairCacheSized(nextPowerOfTwo(pairs))
}

func newPairCacheSized(capacity uint64) *pairCache {
	if capacity > maxDistanceCacheEntries {
		capacity = maxDistanceCacheEntries
	}
	if capacity == 0 {
		capacity = 1
	}
	c := &pairCache{
		keys: make([]uint64, capacity),
		vals: make([]float32, capacity),
		mask: capacity - 1,
	}
	for i := range c.keys {
		c.keys[i] = emptySlot
	}
	return c
}

func (c *pairCache) lookup(key uint64) (float32, bool) {
	slot := key & c.mask
	if c.keys[slot] != key {
		return 0, false
	}
	c.hits++
	return c.vals[slot], true
}

func (c *pairCache) store(key uint64, d float32) {
	slot := key & c.mask
	c.keys[slot] = key
	c.vals[slot] = d
}

// fillFrom rehashes the live entries of prev into c. Shrinking is lossy:
// colliding entries overwrite each other.
func (c *pairCache) fillFrom(prev *pairCache) {
	for slot, key := range prev.keys {
		if key != emptySlot {
			c.store(key, prev.vals[slot])
		}
	}
	c.hits = prev.hits
}

func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return 1 << (64 - bits.LeadingZeros64(n-1))
}
