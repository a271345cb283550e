package hnsw

import (
	"context"
	"math"
	"time"

	"github.com/hupe1980/hnsw/internal/queue"
)

// Add appends items to the index and wires each into the graph. The
// returned ids are dense and assigned in argument order.
//
// The writer gate is taken per item, so readers interleave with long
// batches. Only one Add may run at a time.
func (idx *Index[T]) Add(items ...T) ([]uint32, error) {
	start := time.Now()

	ids := make([]uint32, 0, len(items))
	for _, item := range items {
		t0 := time.Now()

		idx.gate.lock()
		id := idx.addOne(item)
		idx.gate.unlock()

		idx.metrics.RecordAdd(time.Since(t0), nil)
		ids = append(ids, id)
	}

	idx.metrics.RecordBatchAdd(len(items), time.Since(start))
	idx.logger.Debug("added items",
		"count", len(items),
		"total", idx.store.len(),
		"duration", time.Since(start),
	)

	return ids, nil
}

// addOne inserts a single item under the writer gate.
func (idx *Index[T]) addOne(item T) uint32 {
	idx.bumpVersion()

	level := idx.sampleLevel()
	idx.items = append(idx.items, item)
	n := idx.store.append(level)

	if !idx.hasEntryPoint {
		idx.entryPoint = n.ID
		idx.hasEntryPoint = true
		return n.ID
	}

	idx.insertNode(n)

	return n.ID
}

// sampleLevel draws the top layer of a new node from the exponential layer
// distribution: floor(-ln(u) * lambda) with u uniform in (0,1].
func (idx *Index[T]) sampleLevel() int {
	u := 1 - idx.rng.Float64()
	return int(math.Floor(-math.Log(u) * idx.lambda))
}

// insertNode wires n into the graph: greedy descent from the entry point to
// n's top layer, then a beam search and bidirectional connect on every layer
// from there down to the base.
func (idx *Index[T]) insertNode(n *Node) {
	ctx := context.Background()

	ep := idx.entryPoint
	epLayer := idx.store.node(ep).MaxLayer
	cost := idx.oracle.costToNode(n.ID)

	sc := idx.getSearcher()
	defer idx.putSearcher(sc)

	// Descent phase: single-width beam down to the first layer n exists in.
	best := ep
	for layer := epLayer; layer > n.MaxLayer; layer-- {
		_ = idx.searchLayer(ctx, sc, best, cost, layer, 1, nil, idx.version.Load())
		if top, ok := sc.results.Top(); ok {
			best = top.Node
		}
	}

	// Connect phase.
	top := n.MaxLayer
	if epLayer < top {
		top = epLayer
	}
	for layer := top; layer >= 0; layer-- {
		_ = idx.searchLayer(ctx, sc, best, cost, layer, idx.opts.EFConstruction, nil, idx.version.Load())
		sc.scratch = sc.results.Drain(sc.scratch[:0])

		selected := idx.selectNeighbors(n.ID, cost, sc.scratch, layer, idx.store.maxConnections(layer))
		for _, s := range selected {
			idx.connect(n.ID, s, layer)
			idx.connect(s, n.ID, layer)

			if cost(s) < cost(best) {
				best = s
			}
		}
	}

	if n.MaxLayer > epLayer {
		idx.bumpVersion()
		idx.entryPoint = n.ID
	}
}

// connect appends b to a's neighbor list. The list may overshoot its degree
// cap by one; the shrink immediately selects the best Mmax back out of it.
func (idx *Index[T]) connect(a, b uint32, layer int) {
	node := idx.store.node(a)
	conns := node.Connections[layer]
	for _, c := range conns {
		if c == b {
			return
		}
	}

	idx.bumpVersion()
	node.Connections[layer] = append(conns, b)

	if len(node.Connections[layer]) > idx.store.maxConnections(layer) {
		idx.shrink(a, layer)
	}
}

// shrink replaces a's neighbor list with the best Mmax of its current
// members, as chosen by the configured selector.
func (idx *Index[T]) shrink(a uint32, layer int) {
	idx.bumpVersion()

	node := idx.store.node(a)
	conns := node.Connections[layer]
	cost := idx.oracle.costToNode(a)

	cands := make([]queue.Item, len(conns))
	for i, c := range conns {
		cands[i] = queue.Item{Node: c, Distance: cost(c)}
	}

	selected := idx.selectNeighbors(a, cost, cands, layer, idx.store.maxConnections(layer))

	conns = conns[:0]
	conns = append(conns, selected...)
	node.Connections[layer] = conns
}
