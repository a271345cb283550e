package hnsw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hnsw/internal/queue"
)

func absDist(a, b float32) float32 {
	if a > b {
		return a - b
	}
	return b - a
}

// scalarIndex builds an index over scalar items without inserting them
// through the graph, so selector behavior can be probed directly.
func scalarIndex(t *testing.T, items []float32, optFns ...func(o *Options)) *Index[float32] {
	t.Helper()

	idx, err := New[float32](absDist, optFns...)
	require.NoError(t, err)

	for _, item := range items {
		idx.items = append(idx.items, item)
		idx.store.append(0)
	}
	return idx
}

func TestSelectNeighborsSimple(t *testing.T) {
	candidates := []queue.Item{
		{Node: 4, Distance: 4},
		{Node: 1, Distance: 1},
		{Node: 3, Distance: 3},
		{Node: 2, Distance: 2},
	}

	got := selectNeighborsSimple(candidates, 3)
	assert.Equal(t, []uint32{1, 2, 3}, got)

	// m larger than the candidate set returns everything.
	got = selectNeighborsSimple(candidates, 10)
	assert.Len(t, got, 4)
}

func TestSelectNeighborsSimpleTieBreak(t *testing.T) {
	candidates := []queue.Item{
		{Node: 9, Distance: 1},
		{Node: 2, Distance: 1},
		{Node: 5, Distance: 1},
	}

	got := selectNeighborsSimple(candidates, 2)
	assert.Equal(t, []uint32{2, 5}, got)
}

func TestSelectNeighborsHeuristicKeepPruned(t *testing.T) {
	items := []float32{0, 1, 2, 3, 4, 5}

	idx := scalarIndex(t, items, func(o *Options) {
		o.Selection = SelectionHeuristic
		o.KeepPrunedConnections = true
	})

	target := uint32(0)
	cost := idx.oracle.costToNode(target)
	candidates := []queue.Item{
		{Node: 5, Distance: cost(5)},
		{Node: 1, Distance: cost(1)},
		{Node: 3, Distance: cost(3)},
		{Node: 2, Distance: cost(2)},
		{Node: 4, Distance: cost(4)},
	}

	got := idx.selectNeighbors(target, cost, candidates, 0, 3)

	// Nearest first, topped up from the discarded queue.
	assert.Equal(t, []uint32{1, 2, 3}, got)
}

func TestSelectNeighborsHeuristicWithoutKeepPruned(t *testing.T) {
	items := []float32{0, 1, 2, 3, 4, 5}

	idx := scalarIndex(t, items, func(o *Options) {
		o.Selection = SelectionHeuristic
	})

	target := uint32(0)
	cost := idx.oracle.costToNode(target)
	candidates := []queue.Item{
		{Node: 1, Distance: cost(1)},
		{Node: 2, Distance: cost(2)},
		{Node: 3, Distance: cost(3)},
	}

	got := idx.selectNeighbors(target, cost, candidates, 0, 2)

	// Without the top-up only candidates that improve on the selected set
	// survive the pruning pass.
	require.NotEmpty(t, got)
	assert.Equal(t, uint32(1), got[0])
	assert.LessOrEqual(t, len(got), 2)
}

func TestSelectNeighborsHeuristicExpandCandidates(t *testing.T) {
	items := []float32{0, 1, 2, 3, 4, 5}

	idx := scalarIndex(t, items, func(o *Options) {
		o.Selection = SelectionHeuristic
		o.ExpandCandidates = true
		o.KeepPrunedConnections = true
	})

	// Node 5 knows about node 1; the pre-pass pulls 1 into the working set
	// even though only 5 was a candidate.
	idx.store.node(5).Connections[0] = append(idx.store.node(5).Connections[0], 1, 0)

	target := uint32(0)
	cost := idx.oracle.costToNode(target)
	candidates := []queue.Item{
		{Node: 5, Distance: cost(5)},
	}

	got := idx.selectNeighbors(target, cost, candidates, 0, 2)

	assert.Equal(t, []uint32{1, 5}, got)
}

func TestSelectNeighborsExcludesTargetAndDuplicates(t *testing.T) {
	items := []float32{0, 1, 2}

	idx := scalarIndex(t, items, func(o *Options) {
		o.Selection = SelectionHeuristic
		o.KeepPrunedConnections = true
	})

	target := uint32(0)
	cost := idx.oracle.costToNode(target)
	candidates := []queue.Item{
		{Node: 0, Distance: 0},
		{Node: 1, Distance: cost(1)},
		{Node: 1, Distance: cost(1)},
		{Node: 2, Distance: cost(2)},
	}

	got := idx.selectNeighbors(target, cost, candidates, 0, 4)
	assert.Equal(t, []uint32{1, 2}, got)
}
