// Package hnsw provides an embedded, generic Hierarchical Navigable Small
// World (HNSW) index for approximate nearest neighbor search in Go.
//
// The index is generic over the item type and consumes a caller-provided
// distance function, so it can search any metric space:
//
//	idx, err := hnsw.New[[]float32](distance.Cosine, func(o *hnsw.Options) {
//	    o.M = 16
//	    o.EFConstruction = 200
//	})
//	if err != nil {
//	    panic(err)
//	}
//
//	ids, err := idx.Add(vectors...)
//
//	results, err := idx.Search(query).
//	    KNN(10).
//	    EF(100).
//	    Execute(ctx)
//
// # Features
//
//   - Insertion-only layered proximity graph with simple or heuristic
//     neighbor selection
//   - Optimistic reader consistency: searches run against a version counter
//     and retry transparently when the graph mutates underneath them
//   - Result filtering that preserves graph connectivity (filters constrain
//     the result set, never the traversal)
//   - Cooperative cancellation via context.Context with sorted partial
//     results
//   - Deterministic snapshots that round-trip through any io.Writer/Reader,
//     with optional compression and pluggable blob stores (local filesystem,
//     in-memory, S3, MinIO)
//   - Bounded direct-mapped distance cache for graph construction
//
// # Tuning
//
// M controls graph connectivity (degree cap is M per layer, 2M on the base
// layer), EFConstruction the construction beam width, and EFSearch the query
// beam width. Larger values trade latency for recall; recall is monotone
// non-decreasing in EFSearch for a fixed graph.
//
// # Concurrency
//
// A single writer and any number of readers may operate concurrently. Add
// acquires the writer side of the gate per inserted item, so long batches
// interleave with searches. Setting Options.ThreadSafe to false disables the gate for callers
// that synchronize externally.
package hnsw
