package blobstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no blob is stored under a content id.
	ErrNotFound = errors.New("blob not found")
	// ErrWriteFailed wraps storage failures while persisting a blob.
	ErrWriteFailed = errors.New("blob write failed")
)

// PutResult describes one persisted (or already present) blob.
type PutResult struct {
	ContentID string
	SHA256    string
	SizeBytes int64
	Created   bool
}

// ContentStore is the content-addressed byte storage used by the archiver.
type ContentStore interface {
	Put(ctx context.Context, data []byte, ext string) (PutResult, error)
	Get(ctx context.Context, contentID string) ([]byte, error)
	Has(ctx context.Context, contentID string) (bool, error)
}
