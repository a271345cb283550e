// Package testutil provides helpers shared by the package tests and
// benchmarks: seeded random vectors and exact brute-force ground truth.
package testutil

import (
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// RandomVectors returns count seeded random vectors with components in
// [-1, 1).
func RandomVectors(rng *rand.Rand, count, dim int) [][]float32 {
	vectors := make([][]float32, count)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		vectors[i] = v
	}
	return vectors
}

// RandomUnitVectors returns count seeded random vectors of unit L2 norm.
func RandomUnitVectors(rng *rand.Rand, count, dim int) [][]float32 {
	vectors := make([][]float32, count)
	for i := range vectors {
		v := make([]float32, dim)
		var norm2 float64
		for norm2 == 0 {
			for j := range v {
				v[j] = float32(rng.NormFloat64())
			}
			for _, x := range v {
				norm2 += float64(x) * float64(x)
			}
		}
		inv := float32(1 / math.Sqrt(norm2))
		for j := range v {
			v[j] *= inv
		}
		vectors[i] = v
	}
	return vectors
}

// Neighbor is one exact nearest neighbor.
type Neighbor struct {
	ID       uint32
	Distance float32
}

// GroundTruth computes the exact k nearest neighbors of every query by
// brute force, fanning the queries out over all cores.
func GroundTruth(items [][]float32, queries [][]float32, k int, dist func(a, b []float32) float32) [][]Neighbor {
	truth := make([][]Neighbor, len(queries))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for qi := range queries {
		qi := qi
		g.Go(func() error {
			neighbors := make([]Neighbor, len(items))
			for id, item := range items {
				neighbors[id] = Neighbor{ID: uint32(id), Distance: dist(queries[qi], item)}
			}
			sort.Slice(neighbors, func(i, j int) bool {
				if neighbors[i].Distance != neighbors[j].Distance {
					return neighbors[i].Distance < neighbors[j].Distance
				}
				return neighbors[i].ID < neighbors[j].ID
			})
			if len(neighbors) > k {
				neighbors = neighbors[:k]
			}
			truth[qi] = neighbors
			return nil
		})
	}
	_ = g.Wait()

	return truth
}

// Recall measures the fraction of exact neighbors recovered by got.
func Recall(exact []Neighbor, got []uint32) float64 {
	if len(exact) == 0 {
		return 1
	}
	want := make(map[uint32]struct{}, len(exact))
	for _, n := range exact {
		want[n.ID] = struct{}{}
	}
	var hit int
	for _, id := range got {
		if _, ok := want[id]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(exact))
}
