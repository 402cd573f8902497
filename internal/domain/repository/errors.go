package repository

import "errors"

var (
	// ErrCacheUnavailable is returned when the rotation cache cannot be read or written.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrStoreUnavailable is returned when the bulk store listing or object fetch fails.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrBucketNotFound is returned when the configured bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrObjectNotFound is returned when a listed key has no object behind it.
	ErrObjectNotFound = errors.New("object not found")
)
