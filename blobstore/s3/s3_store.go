// Package s3 implements blobstore.Store on Amazon S3.
package s3

import (
	"context"
	"errors"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/hupe1980/hnsw/blobstore"
)

// Store implements blobstore.Store for S3.
type Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewStore creates a new S3 blob store.
// rootPrefix is prepended to all keys (e.g. "indexes/").
func NewStore(client *s3.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		prefix:   rootPrefix,
	}
}

// NewStoreFromDefaultConfig creates a store with a client built from the
// default AWS configuration chain (environment, shared config, IMDS).
func NewStoreFromDefaultConfig(ctx context.Context, bucket, rootPrefix string) (*Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, rootPrefix), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Create streams the blob into a multipart upload. The upload completes when
// the returned writer is closed; Close reports any upload failure.
func (s *Store) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()

	blob := &writableBlob{pw: pw, done: make(chan error, 1)}

	go func() {
		_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key(name)),
			Body:   pr,
		})
		_ = pr.CloseWithError(err)
		blob.done <- err
	}()

	return blob, nil
}

// Open opens an existing blob for reading.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, blobstore.ErrNotFound
		}
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return nil, blobstore.ErrNotFound
		}
		return nil, err
	}
	return out.Body, nil
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
