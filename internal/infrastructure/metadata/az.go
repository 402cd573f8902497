// Package metadata resolves facts about the node serving requests.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hszk-dev/adrotate/internal/infrastructure/metrics"
)

const taskMetadataPath = "/task"

// Config holds configuration for ZoneResolver.
type Config struct {
	// StaticZone, when set, is returned without any lookup.
	StaticZone string
	// MetadataURI is the ECS task metadata endpoint (ECS_CONTAINER_METADATA_URI_V4).
	MetadataURI string
	// Timeout bounds a single metadata request.
	Timeout time.Duration
}

// taskMetadata is the subset of the ECS task metadata response used here.
type taskMetadata struct {
	AvailabilityZone string `json:"AvailabilityZone"`
}

// ZoneResolver returns the availability zone of the running task.
// The first successful lookup is cached for the process lifetime.
type ZoneResolver struct {
	httpClient  *http.Client
	metadataURI string
	sfGroup     singleflight.Group

	mu   sync.RWMutex
	zone string
	done bool
}

// NewZoneResolver creates a ZoneResolver.
func NewZoneResolver(cfg Config) *ZoneResolver {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	r := &ZoneResolver{
		httpClient:  &http.Client{Timeout: timeout},
		metadataURI: strings.TrimRight(cfg.MetadataURI, "/"),
	}
	if cfg.StaticZone != "" {
		r.zone = cfg.StaticZone
		r.done = true
	}
	return r
}

// AvailabilityZone returns the zone, looking it up on first use.
// Without a static zone or a metadata endpoint it returns "".
// Concurrent first lookups share one request.
func (r *ZoneResolver) AvailabilityZone(ctx context.Context) (string, error) {
	r.mu.RLock()
	zone, done := r.zone, r.done
	r.mu.RUnlock()
	if done {
		return zone, nil
	}

	if r.metadataURI == "" {
		return "", nil
	}

	result, err, shared := r.sfGroup.Do(taskMetadataPath, func() (any, error) {
		return r.fetch(ctx)
	})

	if shared {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightShared).Inc()
	} else {
		metrics.SingleflightRequestsTotal.WithLabelValues(metrics.SingleflightInitiated).Inc()
	}

	if err != nil {
		return "", err
	}

	zone = result.(string)
	r.mu.Lock()
	r.zone, r.done = zone, true
	r.mu.Unlock()
	return zone, nil
}

func (r *ZoneResolver) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.metadataURI+taskMetadataPath, nil)
	if err != nil {
		return "", fmt.Errorf("build metadata request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch task metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch task metadata: unexpected status %d", resp.StatusCode)
	}

	var meta taskMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", fmt.Errorf("decode task metadata: %w", err)
	}
	return meta.AvailabilityZone, nil
}
