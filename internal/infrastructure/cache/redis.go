package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/adrotate/internal/domain/model"
	"github.com/hszk-dev/adrotate/internal/infrastructure/metrics"
)

const (
	// rotationCacheKeyPrefix is the prefix for rotation entry keys in Redis.
	rotationCacheKeyPrefix = "rotation:"
)

// adJSON is the wire form of a served ad.
type adJSON struct {
	ID       string `json:"id"`
	VideoURL string `json:"videoUrl"`
}

// rotationEntryJSON is the JSON representation of a RotationEntry.
// A nil ContinuationToken is written as null.
type rotationEntryJSON struct {
	Next              int      `json:"next"`
	Ads               []adJSON `json:"ads"`
	ContinuationToken *string  `json:"continuationToken"`
}

// RedisRotationCache implements RotationCache using Redis as the backing store.
type RedisRotationCache struct {
	client redis.Cmdable
}

// NewRedisRotationCache creates a new Redis-backed rotation cache.
func NewRedisRotationCache(client redis.Cmdable) *RedisRotationCache {
	return &RedisRotationCache{
		client: client,
	}
}

// Get retrieves a rotation entry from Redis.
// Returns nil, nil on cache miss.
func (c *RedisRotationCache) Get(ctx context.Context, key string) (*model.RotationEntry, error) {
	data, err := c.client.Get(ctx, c.buildKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusMiss, metrics.CacheTypeRedis).Inc()
			return nil, nil // Cache miss
		}
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	entry, err := c.deserialize(data)
	if err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return nil, fmt.Errorf("deserialize rotation entry: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpGet, metrics.CacheStatusHit, metrics.CacheTypeRedis).Inc()
	return entry, nil
}

// Set stores a rotation entry in Redis with the specified TTL.
func (c *RedisRotationCache) Set(ctx context.Context, key string, entry *model.RotationEntry, ttl time.Duration) error {
	data, err := c.serialize(entry)
	if err != nil {
		return fmt.Errorf("serialize rotation entry: %w", err)
	}

	if err := c.client.Set(ctx, c.buildKey(key), data, ttl).Err(); err != nil {
		metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusError, metrics.CacheTypeRedis).Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	metrics.CacheOperationsTotal.WithLabelValues(metrics.CacheOpSet, metrics.CacheStatusSuccess, metrics.CacheTypeRedis).Inc()
	return nil
}

// buildKey constructs the Redis key for a bucket prefix.
func (c *RedisRotationCache) buildKey(key string) string {
	return rotationCacheKeyPrefix + key
}

// serialize converts a RotationEntry to JSON bytes.
func (c *RedisRotationCache) serialize(entry *model.RotationEntry) ([]byte, error) {
	v := rotationEntryJSON{
		Next: entry.NextIndex,
		Ads:  make([]adJSON, 0, len(entry.Ads)),
	}
	for _, ad := range entry.Ads {
		v.Ads = append(v.Ads, adJSON{ID: ad.ID, VideoURL: ad.VideoURL})
	}
	if entry.ContinuationToken != "" {
		token := entry.ContinuationToken
		v.ContinuationToken = &token
	}
	return json.Marshal(v)
}

// deserialize converts JSON bytes to a RotationEntry.
func (c *RedisRotationCache) deserialize(data []byte) (*model.RotationEntry, error) {
	var v rotationEntryJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	entry := &model.RotationEntry{
		NextIndex: v.Next,
		Ads:       make([]model.Ad, 0, len(v.Ads)),
	}
	for _, ad := range v.Ads {
		entry.Ads = append(entry.Ads, model.Ad{ID: ad.ID, VideoURL: ad.VideoURL})
	}
	if v.ContinuationToken != nil {
		entry.ContinuationToken = *v.ContinuationToken
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}
