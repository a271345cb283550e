package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the stream compression applied by a Compressed store.
type Compression int

const (
	// CompressionNone stores blobs as-is.
	CompressionNone Compression = iota

	// CompressionZstd applies zstd at its default level. Best ratio for
	// snapshot payloads, which are mostly small integers.
	CompressionZstd

	// CompressionLZ4 applies lz4 framing. Fastest option.
	CompressionLZ4
)

// Compressed wraps a Store so that every blob is transparently compressed on
// write and decompressed on read. Blobs written with one compression setting
// must be read back with the same setting.
func Compressed(inner Store, c Compression) Store {
	if c == CompressionNone {
		return inner
	}
	return &compressedStore{inner: inner, compression: c}
}

type compressedStore struct {
	inner       Store
	compression Compression
}

func (s *compressedStore) Create(ctx context.Context, name string) (io.WriteCloser, error) {
	w, err := s.inner.Create(ctx, name)
	if err != nil {
		return nil, err
	}

	switch s.compression {
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			_ = w.Close()
			return nil, err
		}
		return &compressedWriter{c: zw, inner: w}, nil
	case CompressionLZ4:
		return &compressedWriter{c: lz4.NewWriter(w), inner: w}, nil
	default:
		return nil, fmt.Errorf("blobstore: unknown compression %d", s.compression)
	}
}

func (s *compressedStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	switch s.compression {
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			_ = r.Close()
			return nil, err
		}
		return &zstdReadCloser{zr: zr, inner: r}, nil
	case CompressionLZ4:
		return &lz4ReadCloser{lr: lz4.NewReader(r), inner: r}, nil
	default:
		return nil, fmt.Errorf("blobstore: unknown compression %d", s.compression)
	}
}

// compressedWriter flushes the compressor before closing the underlying
// blob, so Close order is the reverse of the write path.
type compressedWriter struct {
	c     io.WriteCloser
	inner io.WriteCloser
}

func (w *compressedWriter) Write(p []byte) (int, error) { return w.c.Write(p) }

func (w *compressedWriter) Close() error {
	if err := w.c.Close(); err != nil {
		_ = w.inner.Close()
		return err
	}
	return w.inner.Close()
}

type zstdReadCloser struct {
	zr    *zstd.Decoder
	inner io.ReadCloser
}

func (r *zstdReadCloser) Read(p []byte) (int, error) { return r.zr.Read(p) }

func (r *zstdReadCloser) Close() error {
	r.zr.Close()
	return r.inner.Close()
}

type lz4ReadCloser struct {
	lr    *lz4.Reader
	inner io.ReadCloser
}

func (r *lz4ReadCloser) Read(p []byte) (int, error) { return r.lr.Read(p) }

func (r *lz4ReadCloser) Close() error { return r.inner.Close() }
