package hnsw

import (
	"bytes"
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/hnsw/distance"
	"github.com/hupe1980/hnsw/testutil"
)

func TestNew(t *testing.T) {
	idx, err := New[[]float32](distance.SquaredL2, func(o *Options) {
		o.M = 16
		o.EFConstruction = 100
	})
	require.NoError(t, err)

	assert.Equal(t, 16, idx.opts.M)
	assert.Equal(t, 16, idx.store.mmax)
	assert.Equal(t, 32, idx.store.mmax0)
	assert.Equal(t, 100, idx.opts.EFConstruction)
	assert.InDelta(t, 1/math.Log(16), idx.lambda, 1e-12)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name  string
		optFn func(o *Options)
	}{
		{"M zero", func(o *Options) { o.M = 0 }},
		{"M one", func(o *Options) { o.M = 1 }},
		{"M negative", func(o *Options) { o.M = -4 }},
		{"EFConstruction zero", func(o *Options) { o.EFConstruction = 0 }},
		{"EFSearch negative", func(o *Options) { o.EFSearch = -1 }},
		{"LevelLambda NaN", func(o *Options) { o.LevelLambda = math.NaN() }},
		{"LevelLambda negative", func(o *Options) { o.LevelLambda = -0.5 }},
		{"DistanceCacheSize negative", func(o *Options) { o.DistanceCacheSize = -1 }},
		{"InitialCapacity negative", func(o *Options) { o.InitialCapacity = -1 }},
		{"Selection unknown", func(o *Options) { o.Selection = SelectionStrategy(42) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New[[]float32](distance.SquaredL2, tt.optFn)
			var perr *ErrInvalidParameter
			require.ErrorAs(t, err, &perr)
		})
	}
}

func TestNewNilDistance(t *testing.T) {
	_, err := New[[]float32](nil)
	var perr *ErrInvalidParameter
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "distance", perr.Name)
}

func TestEmptyGraphSearch(t *testing.T) {
	idx, err := New[[]float32](distance.SquaredL2)
	require.NoError(t, err)

	results, err := idx.SearchKNN(context.Background(), []float32{1, 2}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSingleItem(t *testing.T) {
	idx, err := New[[]float32](distance.SquaredL2)
	require.NoError(t, err)

	ids, err := idx.Add([]float32{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []uint32{0}, ids)

	results, err := idx.SearchKNN(context.Background(), []float32{1, 2, 3}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint32(0), results[0].ID)
	assert.Equal(t, float32(0), results[0].Distance)
}

func TestKGreaterThanNodeCount(t *testing.T) {
	seed := int64(1)
	idx, err := New[[]float32](distance.SquaredL2, func(o *Options) {
		o.RandomSeed = &seed
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(2))
	_, err = idx.Add(testutil.RandomVectors(rng, 7, 8)...)
	require.NoError(t, err)

	results, err := idx.SearchKNN(context.Background(), make([]float32, 8), 50)
	require.NoError(t, err)
	assert.Len(t, results, 7)
}

func TestSearchResultsSorted(t *testing.T) {
	seed := int64(3)
	idx, err := New[[]float32](distance.SquaredL2, func(o *Options) {
		o.RandomSeed = &seed
	})
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(4))
	_, err = idx.Add(testutil.RandomVectors(rng, 500, 16)...)
	require.NoError(t, err)

	results, err := idx.SearchKNN(context.Background(), testutil.RandomVectors(rng, 1, 16)[0], 10)
	require.NoError(t, err)
	require.Len(t, results, 10)

	for i := 1; i < len(results); i++ {
		assert.LessOrEqual(t, results[i-1].Distance, results[i].Distance)
	}
}

// buildUnitIndex inserts count seeded random unit vectors, mirroring the
// reference end-to-end scenario (seed 42, cosine distance on unit vectors).
func buildUnitIndex(t *testing.T, count, dim int, optFns ...func(o *Options)) (*Index[[]float32], [][]float32) {
	t.Helper()

	seed := int64(42)
	base := func(o *Options) {
		o.RandomSeed = &seed
	}

	idx, err := New[[]float32](distance.CosineUnit, append([]func(o *Options){base}, optFns...)...)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	vectors := testutil.RandomUnitVectors(rng, count, dim)

	ids, err := idx.Add(vectors...)
	require.NoError(t, err)
	require.Len(t, ids, count)

	return idx, vectors
}

func TestIdentityRetrieval(t *testing.T) {
	idx, vectors := buildUnitIndex(t, 1000, 20)

	ctx := context.Background()
	for i, v := range vectors {
		results, err := idx.SearchKNN(ctx, v, 20)
		require.NoError(t, err)
		require.NotEmpty(t, results)

		assert.Equal(t, uint32(i), results[0].ID, "query %d", i)
		assert.LessOrEqual(t, results[0].Distance, float32(1e-6), "query %d", i)
	}
}

func TestIdentityRetrievalHeuristic(t *testing.T) {
	idx, vectors := buildUnitIndex(t, 1000, 20, func(o *Options) {
		o.Selection = SelectionHeuristic
		o.ExpandCandidates = true
		o.KeepPrunedConnections = true
	})

	ctx := context.Background()
	for i, v := range vectors {
		results, err := idx.SearchKNN(ctx, v, 20)
		require.NoError(t, err)
		require.NotEmpty(t, results)

		assert.Equal(t, uint32(i), results[0].ID, "query %d", i)
		assert.LessOrEqual(t, results[0].Distance, float32(1e-6), "query %d", i)
	}
}

// checkGraphInvariants verifies the structural invariants that must hold
// between operations: degree caps, id ranges, no self references or
// duplicates, and the entry point owning the top layer.
func checkGraphInvariants[T any](t *testing.T, idx *Index[T]) {
	t.Helper()

	count := idx.store.len()
	globalMax := 0

	for _, n := range idx.store.nodes {
		require.Len(t, n.Connections, n.MaxLayer+1)
		if n.MaxLayer > globalMax {
			globalMax = n.MaxLayer
		}

		for layer := 0; layer <= n.MaxLayer; layer++ {
			conns := n.Connections[layer]
			assert.LessOrEqual(t, len(conns), idx.store.maxConnections(layer),
				"node %d layer %d degree", n.ID, layer)

			seen := make(map[uint32]struct{}, len(conns))
			for _, c := range conns {
				assert.Less(t, int(c), count, "node %d layer %d: neighbor out of range", n.ID, layer)
				assert.NotEqual(t, n.ID, c, "node %d layer %d: self reference", n.ID, layer)

				_, dup := seen[c]
				assert.False(t, dup, "node %d layer %d: duplicate neighbor %d", n.ID, layer, c)
				seen[c] = struct{}{}
			}
		}
	}

	if count > 0 {
		require.True(t, idx.hasEntryPoint)
		assert.Equal(t, globalMax, idx.store.node(idx.entryPoint).MaxLayer)
	}
}

func TestGraphInvariants(t *testing.T) {
	idx, _ := buildUnitIndex(t, 1000, 20)
	checkGraphInvariants(t, idx)
}

func TestGraphInvariantsHeuristic(t *testing.T) {
	idx, _ := buildUnitIndex(t, 500, 16, func(o *Options) {
		o.Selection = SelectionHeuristic
		o.ExpandCandidates = true
		o.KeepPrunedConnections = true
	})
	checkGraphInvariants(t, idx)
}

func TestRecallMonotoneInEF(t *testing.T) {
	idx, vectors := buildUnitIndex(t, 2000, 16, func(o *Options) {
		o.M = 12
	})

	rng := rand.New(rand.NewSource(99))
	queries := testutil.RandomUnitVectors(rng, 100, 16)
	truth := testutil.GroundTruth(vectors, queries, 10, distance.CosineUnit)

	ctx := context.Background()
	recallAt := func(ef int) float64 {
		var total float64
		for qi, q := range queries {
			results, err := idx.Search(q).KNN(10).EF(ef).Execute(ctx)
			require.NoError(t, err)

			got := make([]uint32, len(results))
			for i, r := range results {
				got[i] = r.ID
			}
			total += testutil.Recall(truth[qi], got)
		}
		return total / float64(len(queries))
	}

	r10 := recallAt(10)
	r50 := recallAt(50)
	r200 := recallAt(200)

	assert.LessOrEqual(t, r10, r50)
	assert.LessOrEqual(t, r50, r200)
	assert.GreaterOrEqual(t, r200, 0.90)
}

func TestDeterministicBuild(t *testing.T) {
	a, _ := buildUnitIndex(t, 300, 12)
	b, _ := buildUnitIndex(t, 300, 12)

	var dumpA, dumpB bytes.Buffer
	require.NoError(t, a.DumpGraph(&dumpA))
	require.NoError(t, b.DumpGraph(&dumpB))

	assert.Equal(t, dumpA.String(), dumpB.String())
}

func TestCacheObservationallyPure(t *testing.T) {
	withCache, _ := buildUnitIndex(t, 300, 12)
	withoutCache, vectors := buildUnitIndex(t, 300, 12, func(o *Options) {
		o.EnableDistanceCache = false
	})

	var dumpA, dumpB bytes.Buffer
	require.NoError(t, withCache.DumpGraph(&dumpA))
	require.NoError(t, withoutCache.DumpGraph(&dumpB))
	require.Equal(t, dumpA.String(), dumpB.String())

	ctx := context.Background()
	for _, q := range vectors[:20] {
		a, err := withCache.SearchKNN(ctx, q, 5)
		require.NoError(t, err)
		b, err := withoutCache.SearchKNN(ctx, q, 5)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}

	assert.Greater(t, withCache.Stats().DistanceCacheHits, uint64(0))
	assert.Equal(t, uint64(0), withoutCache.Stats().DistanceCacheHits)
}

func TestItemAndLen(t *testing.T) {
	idx, vectors := buildUnitIndex(t, 50, 8)

	assert.Equal(t, 50, idx.Len())

	item, err := idx.Item(7)
	require.NoError(t, err)
	assert.Equal(t, vectors[7], item)

	_, err = idx.Item(50)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResizeDistanceCache(t *testing.T) {
	idx, vectors := buildUnitIndex(t, 200, 8)

	idx.ResizeDistanceCache(1000)

	_, err := idx.Add(vectors[:10]...)
	require.NoError(t, err)

	idx.ResizeDistanceCache(0)
	assert.Equal(t, uint64(0), idx.Stats().DistanceCacheHits)

	results, err := idx.SearchKNN(context.Background(), vectors[0], 5)
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestStats(t *testing.T) {
	idx, _ := buildUnitIndex(t, 400, 8)

	s := idx.Stats()
	assert.Equal(t, 400, s.Nodes)
	require.NotEmpty(t, s.LayerNodes)
	assert.Equal(t, 400, s.LayerNodes[0])
	assert.Greater(t, s.AvgBaseDegree, 1.0)
	assert.Greater(t, s.Version, uint64(0))

	empty, err := New[[]float32](distance.SquaredL2)
	require.NoError(t, err)
	s = empty.Stats()
	assert.Equal(t, 0, s.Nodes)
	assert.Empty(t, s.LayerNodes)
}

func TestLevelSampling(t *testing.T) {
	seed := int64(5)
	idx, err := New[[]float32](distance.SquaredL2, func(o *Options) {
		o.RandomSeed = &seed
	})
	require.NoError(t, err)

	levels := make(map[int]int)
	for i := 0; i < 10_000; i++ {
		l := idx.sampleLevel()
		require.GreaterOrEqual(t, l, 0)
		levels[l]++
	}

	// Roughly e^(-1/lambda) of the samples leave layer 0.
	assert.Greater(t, levels[0], 5000)
	assert.Less(t, levels[0], 10_000)
}
