package hnsw

import (
	"sort"

	"github.com/hupe1980/hnsw/internal/queue"
)

// selectNeighbors dispatches to the strategy fixed at construction. The
// returned ids are the neighbors to connect, at most m of them, free of
// duplicates and of target itself.
//
// candidates carry their traveling cost to target; cost resolves distances
// for candidates discovered by the expansion pre-pass.
func (idx *Index[T]) selectNeighbors(target uint32, cost costFunc, candidates []queue.Item, layer, m int) []uint32 {
	if idx.opts.Selection == SelectionHeuristic {
		return idx.selectNeighborsHeuristic(target, cost, candidates, layer, m)
	}
	return selectNeighborsSimple(candidates, m)
}

// selectNeighborsSimple keeps the m candidates nearest to the target.
// Ties are broken by smaller id, which keeps graph construction fully
// deterministic for a seeded build.
func selectNeighborsSimple(candidates []queue.Item, m int) []uint32 {
	sorted := make([]queue.Item, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Distance != sorted[j].Distance {
			return sorted[i].Distance < sorted[j].Distance
		}
		return sorted[i].Node < sorted[j].Node
	})
	if len(sorted) > m {
		sorted = sorted[:m]
	}
	ids := make([]uint32, len(sorted))
	for i, it := range sorted {
		ids[i] = it.Node
	}
	return ids
}

// selectNeighborsHeuristic implements algorithm 4 of the HNSW paper. The
// working queue pops nearest first; a popped candidate joins the result only
// while it improves on the farthest member already selected, otherwise it is
// parked in the discarded queue. With KeepPrunedConnections the result is
// topped up from the discarded queue, nearest first, until m neighbors are
// selected.
func (idx *Index[T]) selectNeighborsHeuristic(target uint32, cost costFunc, candidates []queue.Item, layer, m int) []uint32 {
	working := queue.NewMin(len(candidates) + 1)
	seen := make(map[uint32]struct{}, len(candidates))
	for _, c := range candidates {
		if c.Node == target {
			continue
		}
		if _, dup := seen[c.Node]; dup {
			continue
		}
		seen[c.Node] = struct{}{}
		working.Push(c)
	}

	// Pre-pass: widen the working set with the candidates' own neighborhood
	// on this layer.
	if idx.opts.ExpandCandidates {
		for _, c := range candidates {
			for _, adj := range idx.store.connections(c.Node, layer) {
				if adj == target {
					continue
				}
				if _, dup := seen[adj]; dup {
					continue
				}
				seen[adj] = struct{}{}
				working.Push(queue.Item{Node: adj, Distance: cost(adj)})
			}
		}
	}

	result := make([]uint32, 0, m)
	var farthest float32
	discarded := queue.NewMin(working.Len())

	for working.Len() > 0 && len(result) < m {
		e := working.Pop()
		if len(result) == 0 || e.Distance < farthest {
			result = append(result, e.Node)
			if e.Distance > farthest {
				farthest = e.Distance
			}
			continue
		}
		discarded.Push(e)
	}

	if idx.opts.KeepPrunedConnections {
		for discarded.Len() > 0 && len(result) < m {
			result = append(result, discarded.Pop().Node)
		}
	}

	return result
}
