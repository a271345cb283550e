// Package distance provides float32 metric kernels for vector items.
//
// The index core is metric-agnostic; these kernels exist so that vector
// workloads have ready-made distance functions:
//
//	idx, err := hnsw.New[[]float32](distance.Cosine)
//
// Implementations are selected once at init based on runtime CPU feature
// detection: wide-unrolled loops on cores with AVX2/NEON-class vector units,
// a conservative loop elsewhere.
package distance

import (
	"math"

	"github.com/klauspost/cpuid/v2"
)

var (
	dotImpl       func(a, b []float32) float32
	squaredL2Impl func(a, b []float32) float32
)

func init() {
	if cpuid.CPU.Has(cpuid.AVX2) || cpuid.CPU.Has(cpuid.ASIMD) {
		dotImpl = dotUnrolled8
		squaredL2Impl = squaredL2Unrolled8
		return
	}
	dotImpl = dotGeneric
	squaredL2Impl = squaredL2Generic
}

// Accel names the kernel flavor selected for this process. Useful for
// startup logging.
func Accel() string {
	switch {
	case cpuid.CPU.Has(cpuid.AVX2):
		return "avx2-unrolled"
	case cpuid.CPU.Has(cpuid.ASIMD):
		return "neon-unrolled"
	default:
		return "generic"
	}
}

// Dot returns the dot product of two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Dot(a, b []float32) float32 { return dotImpl(a, b) }

// SquaredL2 returns the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 { return squaredL2Impl(a, b) }

// Cosine returns the cosine distance 1 - cos(a, b). Zero vectors have
// distance 1 to everything.
func Cosine(a, b []float32) float32 {
	dot := dotImpl(a, b)
	na := dotImpl(a, a)
	nb := dotImpl(b, b)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/float32(math.Sqrt(float64(na)*float64(nb)))
}

// CosineUnit returns the cosine distance for pre-normalized unit vectors:
// 1 - dot(a, b). Cheaper than Cosine when inputs are known to be unit
// length.
func CosineUnit(a, b []float32) float32 {
	return 1 - dotImpl(a, b)
}

// NormalizeL2InPlace L2-normalizes v in place.
// Returns false if v has zero L2 norm.
func NormalizeL2InPlace(v []float32) bool {
	norm2 := dotImpl(v, v)
	if norm2 == 0 {
		return false
	}
	inv := float32(1 / math.Sqrt(float64(norm2)))
	for i := range v {
		v[i] *= inv
	}
	return true
}

// NormalizeL2 returns an L2-normalized copy of v.
// Returns false if v has zero L2 norm.
func NormalizeL2(v []float32) ([]float32, bool) {
	out := make([]float32, len(v))
	copy(out, v)
	if !NormalizeL2InPlace(out) {
		return nil, false
	}
	return out, true
}
