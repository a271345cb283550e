package hnsw

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// maxSearchRetries bounds how often a query restarts after observing a
// concurrent structural mutation. Under correct gate usage a retry is rare
// and the bound is never reached.
const maxSearchRetries = 1024

// SearchResult is one query match, sorted ascending by Distance.
type SearchResult[T any] struct {
	ID       uint32
	Item     T
	Distance float32
}

// Filter restricts which items may enter a result set. It sees the id and
// the stored item. Filters constrain results only, never the traversal, so
// aggressive filters cannot disconnect the search from the graph; the cost
// of a filtered search grows with the filtered-out fraction.
type Filter[T any] func(id uint32, item T) bool

// FilterIDs adapts an id predicate (for example a filter.Allowlist) to a
// Filter.
func FilterIDs[T any](pred func(id uint32) bool) Filter[T] {
	return func(id uint32, _ T) bool { return pred(id) }
}

// SearchKNN returns the k approximate nearest neighbors of query.
func (idx *Index[T]) SearchKNN(ctx context.Context, query T, k int) ([]SearchResult[T], error) {
	return idx.Search(query).KNN(k).Execute(ctx)
}

// Search starts a fluent search request:
//
//	results, err := idx.Search(query).
//	    KNN(10).
//	    EF(200).
//	    Filter(func(id uint32, item T) bool { return id%2 == 0 }).
//	    Execute(ctx)
func (idx *Index[T]) Search(query T) *SearchRequest[T] {
	return &SearchRequest[T]{
		idx:   idx,
		query: query,
		k:     1,
	}
}

// SearchRequest accumulates query options before execution.
type SearchRequest[T any] struct {
	idx    *Index[T]
	query  T
	k      int
	ef     int
	filter Filter[T]
}

// KNN sets the number of neighbors to return.
func (r *SearchRequest[T]) KNN(k int) *SearchRequest[T] {
	r.k = k
	return r
}

// EF overrides the base-layer beam width for this request. The effective
// width is never below k.
func (r *SearchRequest[T]) EF(ef int) *SearchRequest[T] {
	r.ef = ef
	return r
}

// Filter restricts results to items accepted by f.
func (r *SearchRequest[T]) Filter(f Filter[T]) *SearchRequest[T] {
	r.filter = f
	return r
}

// Execute runs the search. A cancelled context yields the best partial
// result accumulated so far, sorted ascending by distance, without error.
func (r *SearchRequest[T]) Execute(ctx context.Context) ([]SearchResult[T], error) {
	start := time.Now()

	results, retries, err := r.idx.searchWithRetry(ctx, r.query, r.k, r.ef, r.filter)

	r.idx.metrics.RecordSearch(r.k, retries, time.Since(start), err)

	return results, err
}

func (idx *Index[T]) searchWithRetry(ctx context.Context, query T, k, ef int, filter Filter[T]) ([]SearchResult[T], int, error) {
	if k <= 0 {
		return nil, 0, ErrInvalidK
	}

	idx.gate.rlock()
	defer idx.gate.runlock()

	for attempt := 0; ; attempt++ {
		results, err := idx.searchOnce(ctx, query, k, ef, filter)
		if err == nil {
			return results, attempt, nil
		}
		if !errors.Is(err, ErrGraphChanged) {
			return nil, attempt, err
		}
		if attempt >= maxSearchRetries {
			idx.logger.Warn("search retries exceeded", "attempts", attempt)
			return nil, attempt, fmt.Errorf("%w: %w", ErrRetriesExceeded, err)
		}
	}
}

// searchOnce performs one optimistic traversal: greedy descent from the
// entry point to layer 1, then the full beam on the base layer. It fails
// with ErrGraphChanged when the version counter moves mid-traversal.
func (idx *Index[T]) searchOnce(ctx context.Context, query T, k, ef int, filter Filter[T]) ([]SearchResult[T], error) {
	startVersion := idx.version.Load()

	if !idx.hasEntryPoint {
		return nil, nil
	}

	if ef <= 0 {
		ef = idx.opts.EFSearch
	}
	if ef < k {
		ef = k
	}

	cost := idx.oracle.costTo(query)

	var keep func(uint32) bool
	if filter != nil {
		keep = func(id uint32) bool { return filter(id, idx.items[id]) }
	}

	sc := idx.getSearcher()
	defer idx.putSearcher(sc)

	best := idx.entryPoint
	for layer := idx.store.node(best).MaxLayer; layer >= 1; layer-- {
		if err := idx.searchLayer(ctx, sc, best, cost, layer, 1, nil, startVersion); err != nil {
			return nil, err
		}
		if top, ok := sc.results.Top(); ok {
			best = top.Node
		}
		if ctx.Err() != nil {
			// Cancelled during descent: nothing from the base layer yet.
			return []SearchResult[T]{}, nil
		}
	}

	if err := idx.searchLayer(ctx, sc, best, cost, 0, ef, keep, startVersion); err != nil {
		return nil, err
	}

	sc.scratch = sc.results.Drain(sc.scratch[:0])
	if len(sc.scratch) > k {
		sc.scratch = sc.scratch[:k]
	}

	results := make([]SearchResult[T], len(sc.scratch))
	for i, it := range sc.scratch {
		results[i] = SearchResult[T]{
			ID:       it.Node,
			Item:     idx.items[it.Node],
			Distance: it.Distance,
		}
	}

	return results, nil
}
