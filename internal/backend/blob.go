package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
	"gocloud.dev/gcerrors"
)

// BlobSession serves chunks from a gocloud.dev bucket.
type BlobSession struct {
	handle Handle
	bucket *blob.Bucket
	closed atomic.Bool
}

// Attributes is the subset of object metadata the service cares about.
type Attributes struct {
	Size        int64
	ContentType string
}

// OpenBlob opens the bucket addressed by the handle URL (file://, mem://,
// s3:// or gs://) and verifies it is reachable.
func OpenBlob(ctx context.Context, h Handle) (*BlobSession, error) {
	bucket, err := blob.OpenBucket(ctx, h.URL)
	if err != nil {
		return nil, fmt.Errorf("backend %s: open bucket: %w", h.Name, err)
	}

	ok, err := bucket.IsAccessible(ctx)
	if err != nil || !ok {
		bucket.Close()
		if err == nil {
			err = errors.New("bucket not accessible")
		}
		return nil, fmt.Errorf("backend %s: %w", h.Name, err)
	}

	return NewBlobSession(h, bucket), nil
}

// BlobOpener adapts OpenBlob to the Opener signature.
func BlobOpener(ctx context.Context, h Handle) (Session, error) {
	sess, err := OpenBlob(ctx, h)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// NewBlobSession wraps an already opened bucket. The session owns the
// bucket and closes it on Close.
func NewBlobSession(h Handle, bucket *blob.Bucket) *BlobSession {
	return &BlobSession{handle: h, bucket: bucket}
}

func (s *BlobSession) FetchChunk(ctx context.Context, key string, offset, length int64) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	r, err := s.bucket.NewRangeReader(ctx, key, offset, length, nil)
	if err != nil {
		return nil, s.wrap(key, err)
	}
	defer r.Close()

	buf := make([]byte, length)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, s.wrap(key, err)
	}

	return buf[:n], nil
}

// Stat returns the size and content type recorded for key.
func (s *BlobSession) Stat(ctx context.Context, key string) (Attributes, error) {
	attrs, err := s.bucket.Attributes(ctx, key)
	if err != nil {
		return Attributes{}, s.wrap(key, err)
	}
	return Attributes{Size: attrs.Size, ContentType: attrs.ContentType}, nil
}

// Ping checks the bucket is still reachable.
func (s *BlobSession) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}

	ok, err := s.bucket.IsAccessible(ctx)
	if err != nil {
		return fmt.Errorf("backend %s: %w", s.handle.Name, err)
	}
	if !ok {
		return fmt.Errorf("backend %s: bucket not accessible", s.handle.Name)
	}
	return nil
}

func (s *BlobSession) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.bucket.Close()
}

func (s *BlobSession) wrap(key string, err error) error {
	if gcerrors.Code(err) == gcerrors.NotFound {
		return fmt.Errorf("backend %s: %s: %w", s.handle.Name, key, ErrObjectNotFound)
	}
	return fmt.Errorf("backend %s: %s: %w", s.handle.Name, key, err)
}
