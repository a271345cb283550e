package hnsw_test

import (
	"context"
	"fmt"

	"github.com/hupe1980/hnsw"
	"github.com/hupe1980/hnsw/distance"
)

func Example() {
	seed := int64(42)

	idx, err := hnsw.New[[]float32](distance.SquaredL2, func(o *hnsw.Options) {
		o.M = 16
		o.RandomSeed = &seed
	})
	if err != nil {
		panic(err)
	}

	_, err = idx.Add(
		[]float32{0, 0},
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{10, 10},
	)
	if err != nil {
		panic(err)
	}

	results, err := idx.Search([]float32{0.9, 0.1}).
		KNN(2).
		Execute(context.Background())
	if err != nil {
		panic(err)
	}

	for _, r := range results {
		fmt.Printf("id=%d distance=%.2f\n", r.ID, r.Distance)
	}
	// Output:
	// id=1 distance=0.02
	// id=0 distance=0.82
}
