package hnsw

import (
	"context"

	"github.com/hupe1980/hnsw/blobstore"
)

// SaveSnapshot writes the index snapshot as a named blob. Compression and
// remote destinations are composed on the store side:
//
//	store, _ := blobstore.NewLocal("./data")
//	err := idx.SaveSnapshot(ctx, blobstore.Compressed(store, blobstore.CompressionZstd), "graph.hnsw")
func (idx *Index[T]) SaveSnapshot(ctx context.Context, store blobstore.Store, name string, optFns ...func(o *SnapshotOptions)) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return err
	}
	if err := idx.Snapshot(w, optFns...); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

// LoadSnapshot restores an index from a named blob, re-attaching items in id
// order. See Restore for the parameter semantics.
func LoadSnapshot[T any](ctx context.Context, store blobstore.Store, name string, distance DistanceFunc[T], items []T, optFns ...func(o *Options)) (*Index[T], []T, error) {
	r, err := store.Open(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	return Restore(r, distance, items, optFns...)
}
