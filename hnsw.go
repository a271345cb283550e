package hnsw

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Index is a layered proximity graph over items of type T, supporting
// incremental insertion and approximate k-nearest-neighbor search.
//
// A single writer and any number of readers may use the index concurrently
// (see Options.ThreadSafe). Items are insertion-only: ids are dense indexes
// into the item array, assigned monotonically and never reused.
type Index[T any] struct {
	gate    gate
	version atomic.Uint64

	store         *nodeStore
	items         []T
	entryPoint    uint32
	hasEntryPoint bool

	oracle *oracle[T]
	rng    *rand.Rand
	lambda float64

	opts    Options
	logger  *Logger
	metrics MetricsCollector

	searchers sync.Pool
}

// New creates an empty index over the given metric.
//
//	idx, err := hnsw.New[[]float32](distance.Cosine, func(o *hnsw.Options) {
//	    o.M = 16
//	})
func New[T any](distance DistanceFunc[T], optFns ...func(o *Options)) (*Index[T], error) {
	if distance == nil {
		return nil, &ErrInvalidParameter{Name: "distance", Value: nil, Reason: "must not be nil"}
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	return newIndex(distance, opts), nil
}

func newIndex[T any](distance DistanceFunc[T], opts Options) *Index[T] {
	idx := &Index[T]{
		store:   newNodeStore(opts.M, opts.InitialCapacity),
		items:   make([]T, 0, opts.InitialCapacity),
		lambda:  opts.levelLambda(),
		opts:    opts,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	idx.gate.enabled = opts.ThreadSafe

	if idx.logger == nil {
		idx.logger = NoopLogger()
	}
	if idx.metrics == nil {
		idx.metrics = NoopMetricsCollector{}
	}

	idx.rng = opts.RNG
	if idx.rng == nil {
		if opts.RandomSeed != nil {
			idx.rng = rand.New(rand.NewSource(*opts.RandomSeed))
		} else {
			idx.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}

	idx.oracle = newOracle(distance, func(id uint32) T { return idx.items[id] })
	if opts.EnableDistanceCache {
		idx.oracle.seedCache(opts.DistanceCacheSize)
	}

	ef := opts.EFConstruction
	if opts.EFSearch > ef {
		ef = opts.EFSearch
	}
	idx.searchers.New = func() any { return newSearcher(ef) }

	return idx
}

// Len returns the number of indexed items.
func (idx *Index[T]) Len() int {
	idx.gate.rlock()
	defer idx.gate.runlock()

	return idx.store.len()
}

// Item returns the item stored under id.
func (idx *Index[T]) Item(id uint32) (T, error) {
	idx.gate.rlock()
	defer idx.gate.runlock()

	if int(id) >= len(idx.items) {
		var zero T
		return zero, ErrNotFound
	}
	return idx.items[id], nil
}

// ResizeDistanceCache re-sizes the construction distance cache for the given
// expected item count, carrying current entries over. Zero drops the cache.
func (idx *Index[T]) ResizeDistanceCache(pointsCount int) {
	idx.gate.lock()
	defer idx.gate.unlock()

	idx.oracle.resizeCache(pointsCount)
}

// bumpVersion marks a structural mutation. Readers snapshot the counter at
// search start and retry when it moves.
func (idx *Index[T]) bumpVersion() { idx.version.Add(1) }

func (idx *Index[T]) getSearcher() *searcher {
	return idx.searchers.Get().(*searcher)
}

func (idx *Index[T]) putSearcher(sc *searcher) {
	idx.searchers.Put(sc)
}

// gate is the readers-writer gate of the index. When disabled, every
// operation proceeds without synchronization and the caller is responsible
// for serializing writers against readers.
type gate struct {
	enabled bool
	mu      sync.RWMutex
}

func (g *gate) lock() {
	if g.enabled {
		g.mu.Lock()
	}
}

func (g *gate) unlock() {
	if g.enabled {
		g.mu.Unlock()
	}
}

func (g *gate) rlock() {
	if g.enabled {
		g.mu.RLock()
	}
}

func (g *gate) runlock() {
	if g.enabled {
		g.mu.RUnlock()
	}
}
