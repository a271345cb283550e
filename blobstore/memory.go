package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// Memory implements Store in process memory. Useful for tests and for
// keeping a snapshot around without touching disk.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Create opens a new named blob; it becomes visible on Close.
func (s *Memory) Create(_ context.Context, name string) (io.WriteCloser, error) {
	return &memoryBlob{store: s, name: name}, nil
}

// Open opens an existing blob.
func (s *Memory) Open(_ context.Context, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	b, ok := s.blobs[name]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

// Len returns the number of stored blobs.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

type memoryBlob struct {
	store *Memory
	name  string
	buf   bytes.Buffer
}

func (b *memoryBlob) Write(p []byte) (int, error) { return b.buf.Write(p) }

func (b *memoryBlob) Close() error {
	b.store.mu.Lock()
	b.store.blobs[b.name] = append([]byte(nil), b.buf.Bytes()...)
	b.store.mu.Unlock()
	return nil
}
