package hnsw

import (
	"bufio"
	"fmt"
	"io"
	"sort"
)

// Stats is a point-in-time summary of the graph shape.
type Stats struct {
	// Nodes is the number of indexed items.
	Nodes int

	// MaxLayer is the top layer of the entry point.
	MaxLayer int

	// EntryPoint is the id descent starts from. Valid only when Nodes > 0.
	EntryPoint uint32

	// LayerNodes counts the nodes reaching each layer, base layer first.
	LayerNodes []int

	// AvgBaseDegree is the mean neighbor count on the base layer.
	AvgBaseDegree float64

	// DistanceCacheHits counts construction cache hits so far.
	DistanceCacheHits uint64

	// Version is the current mutation counter.
	Version uint64
}

// Stats returns a summary of the current graph.
func (idx *Index[T]) Stats() Stats {
	idx.gate.rlock()
	defer idx.gate.runlock()

	s := Stats{
		Nodes:             idx.store.len(),
		DistanceCacheHits: idx.oracle.cacheHits(),
		Version:           idx.version.Load(),
	}
	if !idx.hasEntryPoint {
		return s
	}

	s.EntryPoint = idx.entryPoint
	s.MaxLayer = idx.store.node(idx.entryPoint).MaxLayer
	s.LayerNodes = make([]int, s.MaxLayer+1)

	var baseEdges int
	for _, n := range idx.store.nodes {
		for l := 0; l <= n.MaxLayer && l <= s.MaxLayer; l++ {
			s.LayerNodes[l]++
		}
		baseEdges += len(n.Connections[0])
	}
	s.AvgBaseDegree = float64(baseEdges) / float64(s.Nodes)

	return s
}

// DumpGraph writes a deterministic per-layer adjacency listing, one node per
// line in id order with neighbor ids sorted ascending. Two graphs with equal
// dumps have identical structure; the round-trip through Snapshot/Restore
// preserves the dump byte for byte.
func (idx *Index[T]) DumpGraph(w io.Writer) error {
	idx.gate.rlock()
	defer idx.gate.runlock()

	bw := bufio.NewWriter(w)
	scratch := make([]uint32, 0, idx.store.mmax0+1)

	for _, n := range idx.store.nodes {
		if _, err := fmt.Fprintf(bw, "node %d layers %d\n", n.ID, n.MaxLayer); err != nil {
			return err
		}
		for layer := 0; layer <= n.MaxLayer; layer++ {
			scratch = append(scratch[:0], n.Connections[layer]...)
			sort.Slice(scratch, func(i, j int) bool { return scratch[i] < scratch[j] })

			if _, err := fmt.Fprintf(bw, "  %d:", layer); err != nil {
				return err
			}
			for _, c := range scratch {
				if _, err := fmt.Fprintf(bw, " %d", c); err != nil {
					return err
				}
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
	}

	return bw.Flush()
}
