// Package mailstore fetches raw alert messages from the object store.
// Delivered emails are written to a bucket keyed by message id by the
// delivery infrastructure; this package only ever reads.
package mailstore

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ErrNotFound indicates the message body is absent from the bucket.
// This is a terminal input failure for the invocation.
var ErrNotFound = errors.New("mailstore: message not found")

// Store reads message objects from one bucket.
type Store struct {
	client *storage.Client
	bucket string
}

// New creates a store bound to one bucket.
func New(ctx context.Context, bucket string, opts ...option.ClientOption) (*Store, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailstore.New: creating storage client: %w", err)
	}
	return &Store{client: client, bucket: bucket}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Fetch downloads the raw RFC 822 bytes for one message id.
func (s *Store) Fetch(ctx context.Context, messageID string) ([]byte, error) {
	rc, err := s.client.Bucket(s.bucket).Object(messageID).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, s.bucket, messageID)
		}
		return nil, fmt.Errorf("mailstore.Fetch: reading object %s/%s: %w", s.bucket, messageID, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("mailstore.Fetch: reading bytes: %w", err)
	}
	return data, nil
}
