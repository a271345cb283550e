package hnsw

import (
	"context"

	"github.com/hupe1980/hnsw/internal/queue"
	"github.com/hupe1980/hnsw/internal/visited"
)

// searcher bundles the scratch state of one layer traversal: the expansion
// frontier (nearest on top), the bounded result set (farthest on top) and
// the visited bitset. Searchers are pooled and reused across operations.
type searcher struct {
	candidates *queue.PriorityQueue
	results    *queue.PriorityQueue
	visited    *visited.Set
	scratch    []queue.Item
}

func newSearcher(ef int) *searcher {
	return &searcher{
		candidates: queue.NewMin(ef + 1),
		results:    queue.NewMax(ef + 1),
		visited:    visited.New(1024),
		scratch:    make([]queue.Item, 0, ef+1),
	}
}

func (sc *searcher) reset(nodeCount int) {
	sc.candidates.Reset()
	sc.results.Reset()
	sc.visited.Reset()
	sc.visited.EnsureCapacity(nodeCount)
	sc.scratch = sc.scratch[:0]
}

// searchLayer runs the bounded-beam best-first traversal of a single layer
// (SEARCH-LAYER). Results accumulate in sc.results, at most ef of them;
// the caller drains the heap.
//
// keep filters which ids may enter the result set; traversal itself is never
// filtered, so aggressive filters cannot disconnect the walk. A nil keep
// admits everything.
//
// Cancellation is checked once per candidate pop and returns the partial
// result without error. A version moved away from startVersion aborts with
// ErrGraphChanged; the query entry point retries.
func (idx *Index[T]) searchLayer(ctx context.Context, sc *searcher, entry uint32, cost costFunc, layer, ef int, keep func(uint32) bool, startVersion uint64) error {
	sc.candidates.Reset()
	sc.results.Reset()
	sc.visited.Reset()
	sc.visited.EnsureCapacity(idx.store.len())

	entryDist := cost(entry)
	sc.visited.Visit(entry)
	sc.candidates.Push(queue.Item{Node: entry, Distance: entryDist})
	if keep == nil || keep(entry) {
		sc.results.Push(queue.Item{Node: entry, Distance: entryDist})
	}

	for sc.candidates.Len() > 0 {
		if ctx.Err() != nil {
			return nil
		}
		if idx.version.Load() != startVersion {
			return ErrGraphChanged
		}

		curr := sc.candidates.Pop()
		if worst, ok := sc.results.Top(); ok && curr.Distance > worst.Distance {
			break
		}

		for _, next := range idx.store.connections(curr.Node, layer) {
			if sc.visited.Visited(next) {
				continue
			}
			sc.visited.Visit(next)

			d := cost(next)
			worst, ok := sc.results.Top()
			if ok && sc.results.Len() >= ef && d >= worst.Distance {
				continue
			}

			sc.candidates.Push(queue.Item{Node: next, Distance: d})
			if keep == nil || keep(next) {
				sc.results.PushBounded(queue.Item{Node: next, Distance: d}, ef)
			}
		}
	}

	return nil
}
