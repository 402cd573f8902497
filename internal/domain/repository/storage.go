package repository

import (
	"context"
)

// KeyPage is one page of a prefix listing.
// ContinuationToken is empty when the store has no further pages.
type KeyPage struct {
	Keys              []string
	ContinuationToken string
}

// AdStore defines the paginated object store holding one object per bucket key.
// Implementations should be provided by the infrastructure layer (e.g., MinIO, S3).
type AdStore interface {
	// ListKeys returns up to maxKeys keys under prefix in lexicographic order.
	// An empty continuationToken starts from the first page.
	// A listing without contents yields an empty page, not an error.
	ListKeys(ctx context.Context, prefix string, maxKeys int, continuationToken string) (*KeyPage, error)

	// Get returns the object body stored at key.
	// Returns ErrObjectNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores body at key, replacing any existing object.
	// This is used by the campaign loader.
	Put(ctx context.Context, key string, body []byte, contentType string) error
}
