// Package blobstore abstracts where snapshot byte streams live.
//
// A Store addresses immutable named blobs. The graph snapshot codec itself
// only sees io.Writer/io.Reader; stores add naming, durability and optional
// compression on top. Implementations exist for the local filesystem,
// process memory, Amazon S3 and MinIO.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound).
// The default maps to os.ErrNotExist.
var ErrNotFound = os.ErrNotExist

// Store is an abstraction for reading and writing named blobs.
type Store interface {
	// Create opens a new blob for writing, replacing any previous blob of
	// the same name. The blob becomes visible once the returned writer is
	// closed without error.
	Create(ctx context.Context, name string) (io.WriteCloser, error)

	// Open opens an existing blob for reading.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}
