// Package filter builds search filters over item ids.
//
// Filters restrict which ids may enter a result set; the graph traversal
// itself is never filtered. The Allowlist is backed by a Roaring bitmap, so
// large id sets stay compact and membership tests stay constant-time.
package filter

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Predicate decides whether an id may appear in search results.
type Predicate func(id uint32) bool

// Allowlist is a set of admissible ids.
type Allowlist struct {
	bitmap *roaring.Bitmap
}

// NewAllowlist creates an allowlist containing the given ids.
func NewAllowlist(ids ...uint32) *Allowlist {
	a := &Allowlist{bitmap: roaring.New()}
	a.bitmap.AddMany(ids)
	return a
}

// NewAllowlistFromBitmap wraps an existing bitmap. The bitmap is not copied;
// the caller must not mutate it while searches are running.
func NewAllowlistFromBitmap(b *roaring.Bitmap) *Allowlist {
	return &Allowlist{bitmap: b}
}

// Add inserts ids into the allowlist.
func (a *Allowlist) Add(ids ...uint32) {
	a.bitmap.AddMany(ids)
}

// AddRange inserts all ids in [lo, hi).
func (a *Allowlist) AddRange(lo, hi uint32) {
	a.bitmap.AddRange(uint64(lo), uint64(hi))
}

// Contains reports whether id is admissible.
func (a *Allowlist) Contains(id uint32) bool {
	return a.bitmap.Contains(id)
}

// Len returns the number of admissible ids.
func (a *Allowlist) Len() int {
	return int(a.bitmap.GetCardinality())
}

// Predicate returns the membership test as a Predicate.
func (a *Allowlist) Predicate() Predicate {
	return a.bitmap.Contains
}

// And intersects two allowlists into a new one.
func (a *Allowlist) And(other *Allowlist) *Allowlist {
	return &Allowlist{bitmap: roaring.And(a.bitmap, other.bitmap)}
}

// Or unions two allowlists into a new one.
func (a *Allowlist) Or(other *Allowlist) *Allowlist {
	return &Allowlist{bitmap: roaring.Or(a.bitmap, other.bitmap)}
}

// All combines predicates so that every one must admit the id.
func All(preds ...Predicate) Predicate {
	return func(id uint32) bool {
		for _, p := range preds {
			if !p(id) {
				return false
			}
		}
		return true
	}
}

// Any combines predicates so that at least one must admit the id.
func Any(preds ...Predicate) Predicate {
	return func(id uint32) bool {
		for _, p := range preds {
			if p(id) {
				return true
			}
		}
		return false
	}
}
