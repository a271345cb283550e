package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
)

// Local implements Store on a directory of the local filesystem.
type Local struct {
	root string
}

// NewLocal creates a store rooted at the given directory, creating it if
// needed.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Local{root: root}, nil
}

// Create writes the blob to a temporary file and renames it into place on
// Close, so readers never observe a partially written snapshot.
func (s *Local) Create(_ context.Context, name string) (io.WriteCloser, error) {
	f, err := os.CreateTemp(s.root, "."+filepath.Base(name)+".tmp-*")
	if err != nil {
		return nil, err
	}
	return &localBlob{f: f, path: filepath.Join(s.root, name)}, nil
}

// Open opens an existing blob.
func (s *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}

type localBlob struct {
	f    *os.File
	path string
}

func (b *localBlob) Write(p []byte) (int, error) { return b.f.Write(p) }

func (b *localBlob) Close() error {
	if err := b.f.Sync(); err != nil {
		b.abort()
		return err
	}
	if err := b.f.Close(); err != nil {
		_ = os.Remove(b.f.Name())
		return err
	}
	return os.Rename(b.f.Name(), b.path)
}

func (b *localBlob) abort() {
	_ = b.f.Close()
	_ = os.Remove(b.f.Name())
}
