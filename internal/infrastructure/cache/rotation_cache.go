package cache

import (
	"context"
	"time"

	"github.com/hszk-dev/adrotate/internal/domain/model"
)

// RotationCache stores the serving state of each bucket prefix.
// Each entry is read and written as one serialized record; writes are
// plain overwrites with no compare-and-swap.
type RotationCache interface {
	// Get retrieves the rotation entry for key.
	// Returns nil, nil if no entry exists (cache miss).
	Get(ctx context.Context, key string) (*model.RotationEntry, error)

	// Set replaces the rotation entry for key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, entry *model.RotationEntry, ttl time.Duration) error
}
