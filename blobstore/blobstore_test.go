package blobstore

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, store Store, payload []byte) []byte {
	t.Helper()
	ctx := context.Background()

	w, err := store.Create(ctx, "blob")
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := store.Open(ctx, "blob")
	require.NoError(t, err)
	defer r.Close()

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	return got
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()

	payload := []byte("hello snapshot")
	assert.Equal(t, payload, roundTrip(t, store, payload))
	assert.Equal(t, 1, store.Len())

	_, err := store.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreInvisibleUntilClose(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	w, err := store.Create(ctx, "blob")
	require.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	require.NoError(t, err)

	_, err = store.Open(ctx, "blob")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Close())
	_, err = store.Open(ctx, "blob")
	assert.NoError(t, err)
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir)
	require.NoError(t, err)

	payload := []byte("hello snapshot")
	assert.Equal(t, payload, roundTrip(t, store, payload))

	_, err = store.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// No temp files are left behind after a successful write.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "blob", entries[0].Name())
}

func TestCompressedRoundTrip(t *testing.T) {
	payload := make([]byte, 64*1024)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	tests := []struct {
		name        string
		compression Compression
	}{
		{"zstd", CompressionZstd},
		{"lz4", CompressionLZ4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := NewMemory()
			store := Compressed(inner, tt.compression)

			assert.Equal(t, payload, roundTrip(t, store, payload))

			// The stored bytes really are compressed.
			r, err := inner.Open(context.Background(), "blob")
			require.NoError(t, err)
			raw, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Less(t, len(raw), len(payload))
		})
	}
}

func TestCompressedNoneIsPassThrough(t *testing.T) {
	inner := NewMemory()
	assert.Equal(t, Store(inner), Compressed(inner, CompressionNone))
}
