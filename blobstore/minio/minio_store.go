// Package minio implements blobstore.Store for MinIO and other S3-compatible
// object stores.
package minio

import (
	"context"
	"io"
	"path"

	"github.com/minio/minio-go/v7"

	"github.com/hupe1980/hnsw/blobstore"
)

// Store implements blobstore.Store for MinIO.
type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewStore creates a new MinIO blob store.
// rootPrefix is prepended to all keys (e.g. "indexes/").
func NewStore(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Create streams the blob through PutObject. The upload completes when the
// returned writer is closed; Close reports any upload failure.
func (s *Store) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()

	blob := &writableBlob{pw: pw, done: make(chan error, 1)}

	go func() {
		_, err := s.client.PutObject(ctx, s.bucket, s.key(name), pr, -1, minio.PutObjectOptions{})
		_ = pr.CloseWithError(err)
		blob.done <- err
	}()

	return blob, nil
}

// Open opens an existing blob for reading.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	// Stat first: GetObject defers errors to the first Read.
	_, err := s.client.StatObject(ctx, s.bucket, s.key(name), minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NotFound" {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

type writableBlob struct {
	pw   *io.PipeWriter
	done chan error
}

func (b *writableBlob) Write(p []byte) (int, error) { return b.pw.Write(p) }

func (b *writableBlob) Close() error {
	if err := b.pw.Close(); err != nil {
		return err
	}
	return <-b.done
}
