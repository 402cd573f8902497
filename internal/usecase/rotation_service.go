package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/hszk-dev/adrotate/internal/domain/model"
	"github.com/hszk-dev/adrotate/internal/domain/repository"
	"github.com/hszk-dev/adrotate/internal/infrastructure/cache"
	"github.com/hszk-dev/adrotate/internal/infrastructure/metrics"
)

var (
	// ErrNoAdsAvailable is returned when a bucket prefix has no ads in the store.
	ErrNoAdsAvailable = errors.New("no ads available")
)

// WrapPolicy selects the ad served once every page of a bucket has been consumed.
type WrapPolicy string

const (
	// WrapFirst always serves the first ad of the last cached page.
	WrapFirst WrapPolicy = "first"
	// WrapRandom serves a uniformly chosen ad of the last cached page.
	WrapRandom WrapPolicy = "random"
)

// RotationService returns the next ad in rotation for a bucket prefix.
type RotationService interface {
	// Serve returns the next ad for prefix ("country/lang/hour") and advances the rotation cursor.
	// Concurrent calls for the same prefix are not serialized: the cache write is last-writer-wins.
	Serve(ctx context.Context, prefix string) (*model.Ad, error)
}

// RotationServiceConfig holds configuration for RotationService.
type RotationServiceConfig struct {
	// PageSize is the number of keys requested per store listing.
	PageSize int
	// CacheTTL is the expiry set on every rotation entry write. Zero disables expiry.
	CacheTTL time.Duration
	// CacheTimeout bounds each cache get/set.
	CacheTimeout time.Duration
	// StoreTimeout bounds each store list/get.
	StoreTimeout time.Duration
	// WrapPolicy is applied to exhausted entries without a continuation token.
	WrapPolicy WrapPolicy
}

// DefaultRotationServiceConfig returns the default configuration.
func DefaultRotationServiceConfig() RotationServiceConfig {
	return RotationServiceConfig{
		PageSize:     3,
		CacheTTL:     0,
		CacheTimeout: 500 * time.Millisecond,
		StoreTimeout: 2 * time.Second,
		WrapPolicy:   WrapFirst,
	}
}

type rotationService struct {
	cache cache.RotationCache
	store repository.AdStore

	pageSize     int
	cacheTTL     time.Duration
	cacheTimeout time.Duration
	storeTimeout time.Duration
	wrapPolicy   WrapPolicy

	intN func(n int) int
}

// NewRotationService creates a new RotationService instance.
func NewRotationService(
	rotationCache cache.RotationCache,
	store repository.AdStore,
	cfg RotationServiceConfig,
) RotationService {
	defaults := DefaultRotationServiceConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.WrapPolicy == "" {
		cfg.WrapPolicy = defaults.WrapPolicy
	}

	return &rotationService{
		cache:        rotationCache,
		store:        store,
		pageSize:     cfg.PageSize,
		cacheTTL:     cfg.CacheTTL,
		cacheTimeout: cfg.CacheTimeout,
		storeTimeout: cfg.StoreTimeout,
		wrapPolicy:   cfg.WrapPolicy,
		intN:         rand.IntN,
	}
}

// Serve implements the cache-aside rotation:
//   - no entry: list the first page, cache it with cursor 1, serve ads[0]
//   - cursor inside the page: advance the cursor, serve ads[cursor]
//   - page exhausted with a token: replace the page with the next one, serve its first ad
//   - page exhausted without a token: serve ads[0] and leave the entry untouched
func (s *rotationService) Serve(ctx context.Context, prefix string) (*model.Ad, error) {
	p, err := model.ParsePrefix(prefix)
	if err != nil {
		metrics.AdServesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, err
	}

	ad, outcome, err := s.serve(ctx, p)
	if err != nil {
		if errors.Is(err, ErrNoAdsAvailable) {
			outcome = metrics.OutcomeNoAds
		} else {
			outcome = metrics.OutcomeError
		}
		metrics.AdServesTotal.WithLabelValues(outcome).Inc()
		return nil, err
	}

	metrics.AdServesTotal.WithLabelValues(outcome).Inc()
	return ad, nil
}

func (s *rotationService) serve(ctx context.Context, p model.Prefix) (*model.Ad, string, error) {
	key := p.String()

	entry, err := s.getEntry(ctx, key)
	if err != nil {
		return nil, "", err
	}

	if entry == nil {
		return s.coldFetch(ctx, p)
	}

	switch {
	case !entry.Exhausted():
		ad := entry.Ads[entry.NextIndex]
		advanced := entry.Advanced()
		if err := s.setEntry(ctx, key, advanced); err != nil {
			return nil, "", err
		}
		slog.Debug("rotation advanced",
			"prefix", key,
			"next_index", advanced.NextIndex,
		)
		return &ad, metrics.OutcomeAdvance, nil

	case entry.HasMore():
		return s.nextPage(ctx, p, entry)

	default:
		ad := s.wrap(entry)
		return &ad, metrics.OutcomeWrap, nil
	}
}

// coldFetch populates the cache from the first page of the prefix listing.
func (s *rotationService) coldFetch(ctx context.Context, p model.Prefix) (*model.Ad, string, error) {
	ads, token, err := s.fetchPage(ctx, p, "")
	if err != nil {
		return nil, "", err
	}
	if len(ads) == 0 {
		slog.Info("no ads for prefix", "prefix", p.String())
		return nil, "", fmt.Errorf("%w: %s", ErrNoAdsAvailable, p.String())
	}

	entry := model.NewRotationEntry(ads, token)
	if err := s.setEntry(ctx, p.String(), entry); err != nil {
		return nil, "", err
	}

	slog.Debug("rotation cold fetch",
		"prefix", p.String(),
		"page_size", len(ads),
		"has_more", entry.HasMore(),
	)
	return &ads[0], metrics.OutcomeCold, nil
}

// nextPage replaces an exhausted entry with the page behind its continuation token.
func (s *rotationService) nextPage(ctx context.Context, p model.Prefix, entry *model.RotationEntry) (*model.Ad, string, error) {
	ads, token, err := s.fetchPage(ctx, p, entry.ContinuationToken)
	if err != nil {
		return nil, "", err
	}

	if len(ads) == 0 {
		// The store reported more pages but had none left: the pool ended on the cached page.
		final := &model.RotationEntry{
			NextIndex: entry.NextIndex,
			Ads:       entry.Ads,
		}
		if err := s.setEntry(ctx, p.String(), final); err != nil {
			return nil, "", err
		}
		ad := s.wrap(final)
		return &ad, metrics.OutcomeWrap, nil
	}

	replacement := model.NewRotationEntry(ads, token)
	if err := s.setEntry(ctx, p.String(), replacement); err != nil {
		return nil, "", err
	}

	slog.Debug("rotation next page",
		"prefix", p.String(),
		"page_size", len(ads),
		"has_more", replacement.HasMore(),
	)
	return &ads[0], metrics.OutcomeNextPage, nil
}

func (s *rotationService) wrap(entry *model.RotationEntry) model.Ad {
	if s.wrapPolicy == WrapRandom && len(entry.Ads) > 1 {
		return entry.Ads[s.intN(len(entry.Ads))]
	}
	return entry.Ads[0]
}

// fetchPage lists one page of keys and loads the ad stored at each, in listing order.
func (s *rotationService) fetchPage(ctx context.Context, p model.Prefix, token string) ([]model.Ad, string, error) {
	page, err := s.listKeys(ctx, p.ListPrefix(), token)
	if err != nil {
		return nil, "", err
	}

	ads := make([]model.Ad, 0, len(page.Keys))
	for _, key := range page.Keys {
		ad, err := s.getAd(ctx, key)
		if err != nil {
			return nil, "", err
		}
		ads = append(ads, *ad)
	}
	return ads, page.ContinuationToken, nil
}

func (s *rotationService) listKeys(ctx context.Context, prefix, token string) (*repository.KeyPage, error) {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	page, err := s.store.ListKeys(ctx, prefix, s.pageSize, token)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", repository.ErrStoreUnavailable, prefix, err)
	}
	return page, nil
}

func (s *rotationService) getAd(ctx context.Context, key string) (*model.Ad, error) {
	ctx, cancel := withTimeout(ctx, s.storeTimeout)
	defer cancel()

	body, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", repository.ErrStoreUnavailable, key, err)
	}

	var ad model.Ad
	if err := json.Unmarshal(body, &ad); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", repository.ErrStoreUnavailable, key, err)
	}
	return &ad, nil
}

func (s *rotationService) getEntry(ctx context.Context, key string) (*model.RotationEntry, error) {
	ctx, cancel := withTimeout(ctx, s.cacheTimeout)
	defer cancel()

	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", repository.ErrCacheUnavailable, key, err)
	}
	return entry, nil
}

func (s *rotationService) setEntry(ctx context.Context, key string, entry *model.RotationEntry) error {
	ctx, cancel := withTimeout(ctx, s.cacheTimeout)
	defer cancel()

	if err := s.cache.Set(ctx, key, entry, s.cacheTTL); err != nil {
		return fmt.Errorf("%w: set %s: %w", repository.ErrCacheUnavailable, key, err)
	}
	return nil
}

// withTimeout applies d to ctx. A non-positive d leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
