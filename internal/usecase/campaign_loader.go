package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hszk-dev/adrotate/internal/domain/model"
	"github.com/hszk-dev/adrotate/internal/domain/repository"
	"github.com/hszk-dev/adrotate/internal/infrastructure/metrics"
)

const (
	// DefaultMaxRetries is the default maximum number of retry attempts before a task is dropped.
	DefaultMaxRetries = 3

	// DefaultLoadConcurrency is the default number of campaigns uploaded in parallel.
	DefaultLoadConcurrency = 8

	adContentType = "application/json"
)

// ErrQueueNotConfigured is returned by PublishAll when the loader has no message queue.
var ErrQueueNotConfigured = errors.New("message queue not configured")

// CampaignLoaderConfig holds configuration for CampaignLoader.
type CampaignLoaderConfig struct {
	// Concurrency bounds the number of campaigns uploaded at once by LoadAll.
	Concurrency int
	// MaxRetries is the retry count at which a queued task is dropped.
	MaxRetries int
}

// DefaultCampaignLoaderConfig returns the default configuration.
func DefaultCampaignLoaderConfig() CampaignLoaderConfig {
	return CampaignLoaderConfig{
		Concurrency: DefaultLoadConcurrency,
		MaxRetries:  DefaultMaxRetries,
	}
}

// LoadSummary reports what a bulk load wrote.
type LoadSummary struct {
	Campaigns int
	Keys      int
}

// CampaignLoader publishes campaigns into the bulk store, one object per bucket key.
type CampaignLoader interface {
	// LoadCampaign validates c, expands its window and writes every key.
	// Returns the number of keys written.
	LoadCampaign(ctx context.Context, c model.Campaign) (int, error)

	// LoadAll uploads campaigns in parallel and stops at the first failure.
	LoadAll(ctx context.Context, campaigns []model.Campaign) (*LoadSummary, error)

	// PublishAll enqueues one task per campaign for the worker instead of uploading inline.
	PublishAll(ctx context.Context, campaigns []model.Campaign) (int, error)

	// ProcessTask handles a task from the message queue.
	// Returns nil on success or when the task is dropped after too many retries.
	ProcessTask(ctx context.Context, task repository.CampaignTask) error
}

type campaignLoader struct {
	store repository.AdStore
	queue repository.MessageQueue

	concurrency int
	maxRetries  int
}

// NewCampaignLoader creates a new CampaignLoader instance.
// queue may be nil when tasks are never published.
func NewCampaignLoader(
	store repository.AdStore,
	queue repository.MessageQueue,
	cfg CampaignLoaderConfig,
) CampaignLoader {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultLoadConcurrency
	}
	return &campaignLoader{
		store:       store,
		queue:       queue,
		concurrency: cfg.Concurrency,
		maxRetries:  cfg.MaxRetries,
	}
}

func (l *campaignLoader) LoadCampaign(ctx context.Context, c model.Campaign) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}

	keys, err := c.Keys()
	if err != nil {
		return 0, fmt.Errorf("expand campaign %s: %w", c.ID, err)
	}

	body, err := json.Marshal(c.Ad())
	if err != nil {
		return 0, fmt.Errorf("marshal ad %s: %w", c.ID, err)
	}

	for i, key := range keys {
		if err := l.store.Put(ctx, key, body, adContentType); err != nil {
			return i, fmt.Errorf("%w: put %s: %w", repository.ErrStoreUnavailable, key, err)
		}
		metrics.CampaignKeysWrittenTotal.Inc()
	}

	slog.Debug("campaign loaded",
		"campaign_id", c.ID,
		"keys", len(keys),
	)
	return len(keys), nil
}

func (l *campaignLoader) LoadAll(ctx context.Context, campaigns []model.Campaign) (*LoadSummary, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	var keys atomic.Int64
	for _, c := range campaigns {
		g.Go(func() error {
			n, err := l.LoadCampaign(ctx, c)
			keys.Add(int64(n))
			if err != nil {
				return fmt.Errorf("load campaign %s: %w", c.ID, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &LoadSummary{
		Campaigns: len(campaigns),
		Keys:      int(keys.Load()),
	}
	slog.Info("bulk load completed",
		"campaigns", summary.Campaigns,
		"keys", summary.Keys,
	)
	return summary, nil
}

func (l *campaignLoader) PublishAll(ctx context.Context, campaigns []model.Campaign) (int, error) {
	if l.queue == nil {
		return 0, ErrQueueNotConfigured
	}

	for i, c := range campaigns {
		if err := c.Validate(); err != nil {
			return i, err
		}
		if err := l.queue.PublishCampaignTask(ctx, repository.CampaignTask{Campaign: c}); err != nil {
			return i, fmt.Errorf("publish campaign %s: %w", c.ID, err)
		}
	}
	return len(campaigns), nil
}

func (l *campaignLoader) ProcessTask(ctx context.Context, task repository.CampaignTask) error {
	if task.RetryCount >= l.maxRetries {
		slog.Error("dropping campaign task after max retries",
			"campaign_id", task.Campaign.ID,
			"retry_count", task.RetryCount,
		)
		return nil
	}

	// Invalid campaigns never succeed on retry.
	if err := task.Campaign.Validate(); err != nil {
		slog.Error("dropping invalid campaign task",
			"campaign_id", task.Campaign.ID,
			"error", err,
		)
		return nil
	}

	if _, err := l.LoadCampaign(ctx, task.Campaign); err != nil {
		return fmt.Errorf("load campaign %s: %w", task.Campaign.ID, err)
	}
	return nil
}
