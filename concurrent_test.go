package hnsw

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/hnsw/distance"
	"github.com/hupe1980/hnsw/testutil"
)

// TestConcurrentWriterAndReaders runs one writer inserting batches against
// eight readers searching continuously. Readers must never observe an
// out-of-range id and both sides must make progress.
func TestConcurrentWriterAndReaders(t *testing.T) {
	if testing.Short() {
		t.Skip("concurrency scenario")
	}

	const (
		total     = 5000
		batchSize = 100
		readers   = 8
		dim       = 16
	)

	seed := int64(42)
	idx, err := New[[]float32](distance.CosineUnit, func(o *Options) {
		o.RandomSeed = &seed
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	vectors := testutil.RandomUnitVectors(rng, total, dim)
	queries := testutil.RandomUnitVectors(rng, 64, dim)

	// Seed the graph so readers have something to traverse from the start.
	_, err = idx.Add(vectors[:batchSize]...)
	require.NoError(t, err)

	var (
		done         atomic.Bool
		searchesDone atomic.Int64
	)

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		defer done.Store(true)
		for at := batchSize; at < total; at += batchSize {
			if _, err := idx.Add(vectors[at : at+batchSize]...); err != nil {
				return err
			}
		}
		return nil
	})

	for r := 0; r < readers; r++ {
		r := r
		g.Go(func() error {
			qrng := rand.New(rand.NewSource(int64(1000 + r)))
			for !done.Load() {
				q := queries[qrng.Intn(len(queries))]
				results, err := idx.SearchKNN(ctx, q, 10)
				if err != nil {
					return err
				}
				inserted := idx.Len()
				for i, res := range results {
					if int(res.ID) >= inserted {
						t.Errorf("result id %d beyond inserted count %d", res.ID, inserted)
					}
					if i > 0 && results[i-1].Distance > res.Distance {
						t.Errorf("results out of order")
					}
				}
				searchesDone.Add(1)
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())

	assert.Equal(t, total, idx.Len())
	assert.Greater(t, searchesDone.Load(), int64(0))

	checkGraphInvariants(t, idx)
}

// TestConcurrentItemAccess interleaves Item and Stats reads with a writer.
func TestConcurrentItemAccess(t *testing.T) {
	seed := int64(7)
	idx, err := New[[]float32](distance.SquaredL2, func(o *Options) {
		o.RandomSeed = &seed
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(8))
	vectors := testutil.RandomVectors(rng, 1000, 8)

	_, err = idx.Add(vectors[:10]...)
	require.NoError(t, err)

	var done atomic.Bool

	var g errgroup.Group
	g.Go(func() error {
		defer done.Store(true)
		_, err := idx.Add(vectors[10:]...)
		return err
	})
	g.Go(func() error {
		for !done.Load() {
			n := idx.Len()
			if n == 0 {
				continue
			}
			if _, err := idx.Item(uint32(n - 1)); err != nil {
				return err
			}
			_ = idx.Stats()
		}
		return nil
	})

	require.NoError(t, g.Wait())
}
