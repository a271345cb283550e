package hnsw

import (
	"math"
	"math/rand"
)

// SelectionStrategy determines how neighbors are chosen when connecting a
// node or shrinking an overfull neighbor list.
type SelectionStrategy int

const (
	// SelectionSimple keeps the M candidates nearest to the target, ties
	// broken by smaller id.
	SelectionSimple SelectionStrategy = iota

	// SelectionHeuristic applies the diversity heuristic from the HNSW paper
	// (algorithm 4), optionally extended by ExpandCandidates and
	// KeepPrunedConnections.
	SelectionHeuristic
)

const (
	// DefaultM is the default target degree per layer.
	DefaultM = 10

	// DefaultEFConstruction is the default beam width during insertion.
	DefaultEFConstruction = 200

	// DefaultEFSearch is the default beam width during queries. The
	// effective beam is never below k.
	DefaultEFSearch = 50

	// DefaultDistanceCacheSize is the default seed sizing for the
	// construction distance cache.
	DefaultDistanceCacheSize = 1 << 20

	// maxDistanceCacheEntries caps the direct-mapped distance cache.
	maxDistanceCacheEntries = 1 << 28

	// mmax0Multiplier is the multiplier for the degree cap at layer 0.
	mmax0Multiplier = 2
)

// Options represents the options for configuring the index. All fields are
// frozen at construction.
type Options struct {
	// M specifies the number of established connections for every new
	// element during construction. The degree cap is M on layers above 0 and
	// 2M on layer 0. Reasonable range is 2-100; higher M suits datasets with
	// high intrinsic dimensionality or high recall targets.
	M int

	// LevelLambda scales the exponential layer distribution: a new node's
	// top layer is floor(-ln(u) * LevelLambda). Zero means 1/ln(M).
	LevelLambda float64

	// Selection picks the neighbor selection strategy.
	Selection SelectionStrategy

	// EFConstruction is the beam width while building the graph. Larger
	// values improve graph quality at the cost of insertion time.
	EFConstruction int

	// EFSearch is the beam width on the base layer during queries. The
	// effective value is max(EFSearch, k). Recall is monotone non-decreasing
	// in EFSearch for a fixed graph.
	EFSearch int

	// ExpandCandidates enables the heuristic pre-pass that adds each
	// candidate's layer neighbors to the working set.
	ExpandCandidates bool

	// KeepPrunedConnections tops the heuristic result up from discarded
	// candidates, nearest first.
	KeepPrunedConnections bool

	// EnableDistanceCache controls whether construction-time distance
	// computations go through the direct-mapped pair cache. The cache is
	// advisory: results are identical with it disabled.
	EnableDistanceCache bool

	// DistanceCacheSize seeds the cache capacity (entries, rounded up to a
	// power of two, clamped to 2^28). Restored indexes start with 0.
	DistanceCacheSize int

	// InitialCapacity pre-allocates the node and item arrays.
	InitialCapacity int

	// ThreadSafe enables the readers-writer gate. Disable only when the
	// caller guarantees external synchronization.
	ThreadSafe bool

	// RNG is the uniform (0,1] source used for layer sampling. Must be
	// deterministic when seeded; need not be cryptographic. Nil means a
	// rand.Rand seeded from RandomSeed, or from entropy if RandomSeed is
	// also nil.
	RNG *rand.Rand

	// RandomSeed seeds the default RNG for reproducible graphs.
	RandomSeed *int64

	// Logger receives structured operational logs. Nil disables logging.
	Logger *Logger

	// Metrics receives operation timings. Nil disables collection.
	Metrics MetricsCollector
}

// DefaultOptions are the options used when none are overridden.
var DefaultOptions = Options{
	M:                   DefaultM,
	Selection:           SelectionSimple,
	EFConstruction:      DefaultEFConstruction,
	EFSearch:            DefaultEFSearch,
	EnableDistanceCache: true,
	DistanceCacheSize:   DefaultDistanceCacheSize,
	InitialCapacity:     1024,
	ThreadSafe:          true,
}

func (o *Options) validate() error {
	if o.M <= 1 {
		return &ErrInvalidParameter{Name: "M", Value: o.M, Reason: "must be at least 2"}
	}
	if o.LevelLambda < 0 || math.IsNaN(o.LevelLambda) || math.IsInf(o.LevelLambda, 0) {
		return &ErrInvalidParameter{Name: "LevelLambda", Value: o.LevelLambda, Reason: "must be a finite non-negative number"}
	}
	if o.Selection != SelectionSimple && o.Selection != SelectionHeuristic {
		return &ErrInvalidParameter{Name: "Selection", Value: o.Selection, Reason: "unknown strategy"}
	}
	if o.EFConstruction <= 0 {
		return &ErrInvalidParameter{Name: "EFConstruction", Value: o.EFConstruction, Reason: "must be positive"}
	}
	if o.EFSearch <= 0 {
		return &ErrInvalidParameter{Name: "EFSearch", Value: o.EFSearch, Reason: "must be positive"}
	}
	if o.DistanceCacheSize < 0 {
		return &ErrInvalidParameter{Name: "DistanceCacheSize", Value: o.DistanceCacheSize, Reason: "must be non-negative"}
	}
	if o.InitialCapacity < 0 {
		return &ErrInvalidParameter{Name: "InitialCapacity", Value: o.InitialCapacity, Reason: "must be non-negative"}
	}
	return nil
}

// levelLambda resolves the effective layer distribution scale.
func (o *Options) levelLambda() float64 {
	if o.LevelLambda > 0 {
		return o.LevelLambda
	}
	return 1 / math.Log(float64(o.M))
}
