package visited

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisit(t *testing.T) {
	s := New(128)

	assert.False(t, s.Visited(5))
	s.Visit(5)
	assert.True(t, s.Visited(5))

	// Visiting twice is fine.
	s.Visit(5)
	assert.True(t, s.Visited(5))
}

func TestReset(t *testing.T) {
	s := New(128)
	for _, id := range []uint32{0, 63, 64, 127} {
		s.Visit(id)
	}

	s.Reset()

	for _, id := range []uint32{0, 63, 64, 127} {
		assert.False(t, s.Visited(id))
	}
}

func TestGrowOnVisit(t *testing.T) {
	s := New(8)

	s.Visit(100_000)
	assert.True(t, s.Visited(100_000))
	assert.False(t, s.Visited(99_999))
}

func TestEnsureCapacity(t *testing.T) {
	s := New(8)
	s.EnsureCapacity(4096)

	assert.False(t, s.Visited(4095))
	s.Visit(4095)
	assert.True(t, s.Visited(4095))
}

func TestVisitedOutOfRange(t *testing.T) {
	s := New(8)
	assert.False(t, s.Visited(1<<20))
}
