package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/hszk-dev/adrotate/internal/domain/model"
	"github.com/hszk-dev/adrotate/internal/domain/repository"
)

func testAds(ids ...string) []model.Ad {
	ads := make([]model.Ad, 0, len(ids))
	for _, id := range ids {
		ads = append(ads, model.Ad{ID: id, VideoURL: fmt.Sprintf("https://cdn.example.com/%s.mp4", id)})
	}
	return ads
}

func newTestRotationService(c *mockRotationCache, s *mockAdStore) *rotationService {
	return NewRotationService(c, s, DefaultRotationServiceConfig()).(*rotationService)
}

func TestDefaultRotationServiceConfig(t *testing.T) {
	cfg := DefaultRotationServiceConfig()

	if cfg.PageSize != 3 {
		t.Errorf("PageSize: got %d, expected 3", cfg.PageSize)
	}
	if cfg.WrapPolicy != WrapFirst {
		t.Errorf("WrapPolicy: got %q, expected %q", cfg.WrapPolicy, WrapFirst)
	}
}

func TestNewRotationService_FillsDefaults(t *testing.T) {
	svc := NewRotationService(newMockRotationCache(), newMockAdStore(), RotationServiceConfig{}).(*rotationService)

	if svc.pageSize != 3 {
		t.Errorf("pageSize: got %d, expected 3", svc.pageSize)
	}
	if svc.wrapPolicy != WrapFirst {
		t.Errorf("wrapPolicy: got %q, expected %q", svc.wrapPolicy, WrapFirst)
	}
}

func TestRotationService_Serve_ColdFetch(t *testing.T) {
	c := newMockRotationCache()
	s := newMockAdStore().withAds("us/eng/5/", testAds("a1", "a2", "a3", "a4")...)
	svc := newTestRotationService(c, s)

	ad, err := svc.Serve(context.Background(), "us/eng/5")
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if ad.ID != "a1" {
		t.Errorf("Serve() = %s, want a1", ad.ID)
	}

	entry := c.entry("us/eng/5")
	if entry == nil {
		t.Fatal("expected cache entry after cold fetch")
	}
	if entry.NextIndex != 1 {
		t.Errorf("NextIndex = %d, want 1", entry.NextIndex)
	}
	if !reflect.DeepEqual(entry.Ads, testAds("a1", "a2", "a3")) {
		t.Errorf("Ads = %+v", entry.Ads)
	}
	if entry.ContinuationToken != "us/eng/5/a3" {
		t.Errorf("ContinuationToken = %q, want us/eng/5/a3", entry.ContinuationToken)
	}
	if !reflect.DeepEqual(s.lists, []string{""}) {
		t.Errorf("listings = %q, want one first-page listing", s.lists)
	}
}

func TestRotationService_Serve_ColdFetchSinglePage(t *testing.T) {
	c := newMockRotationCache()
	s := newMockAdStore().withAds("us/eng/5/", testAds("a1", "a2")...)
	svc := newTestRotationService(c, s)

	if _, err := svc.Serve(context.Background(), "us/eng/5"); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}

	entry := c.entry("us/eng/5")
	if entry.HasMore() {
		t.Errorf("ContinuationToken = %q, want none", entry.ContinuationToken)
	}
}

func TestRotationService_Serve_Advance(t *testing.T) {
	c := newMockRotationCache()
	c.data["us/eng/5"] = &model.RotationEntry{
		NextIndex:         1,
		Ads:               testAds("a1", "a2", "a3"),
		ContinuationToken: "token-1",
	}
	s := newMockAdStore()
	svc := newTestRotationService(c, s)

	ad, err := svc.Serve(context.Background(), "us/eng/5")
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if ad.ID != "a2" {
		t.Errorf("Serve() = %s, want a2", ad.ID)
	}

	entry := c.entry("us/eng/5")
	if entry.NextIndex != 2 {
		t.Errorf("NextIndex = %d, want 2", entry.NextIndex)
	}
	if !reflect.DeepEqual(entry.Ads, testAds("a1", "a2", "a3")) {
		t.Errorf("Ads changed: %+v", entry.Ads)
	}
	if entry.ContinuationToken != "token-1" {
		t.Errorf("ContinuationToken = %q, want token-1", entry.ContinuationToken)
	}
	if len(s.lists) != 0 || s.gets != 0 {
		t.Errorf("store should not be touched, got %d lists %d gets", len(s.lists), s.gets)
	}
}

func TestRotationService_Serve_NextPage(t *testing.T) {
	c := newMockRotationCache()
	c.data["us/eng/5"] = &model.RotationEntry{
		NextIndex:         3,
		Ads:               testAds("a1", "a2", "a3"),
		ContinuationToken: "us/eng/5/a3",
	}
	s := newMockAdStore().withAds("us/eng/5/", testAds("a1", "a2", "a3", "a4", "a5")...)
	svc := newTestRotationService(c, s)

	ad, err := svc.Serve(context.Background(), "us/eng/5")
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if ad.ID != "a4" {
		t.Errorf("Serve() = %s, want a4", ad.ID)
	}

	if !reflect.DeepEqual(s.lists, []string{"us/eng/5/a3"}) {
		t.Errorf("listings = %q, want exactly one with the stored token", s.lists)
	}

	entry := c.entry("us/eng/5")
	if entry.NextIndex != 1 {
		t.Errorf("NextIndex = %d, want 1", entry.NextIndex)
	}
	if !reflect.DeepEqual(entry.Ads, testAds("a4", "a5")) {
		t.Errorf("Ads = %+v, want a4 a5", entry.Ads)
	}
	if entry.HasMore() {
		t.Errorf("ContinuationToken = %q, want none", entry.ContinuationToken)
	}
}

func TestRotationService_Serve_TerminalWrap(t *testing.T) {
	c := newMockRotationCache()
	c.data["us/eng/5"] = &model.RotationEntry{
		NextIndex: 2,
		Ads:       testAds("a1", "a2"),
	}
	s := newMockAdStore()
	svc := newTestRotationService(c, s)

	for i := 0; i < 3; i++ {
		ad, err := svc.Serve(context.Background(), "us/eng/5")
		if err != nil {
			t.Fatalf("Serve() error = %v", err)
		}
		if ad.ID != "a1" {
			t.Errorf("call %d: Serve() = %s, want a1", i, ad.ID)
		}
	}

	if c.sets != 0 {
		t.Errorf("wrap should not write the cache, got %d sets", c.sets)
	}
	if entry := c.entry("us/eng/5"); entry.NextIndex != 2 {
		t.Errorf("NextIndex = %d, want 2", entry.NextIndex)
	}
	if len(s.lists) != 0 {
		t.Errorf("wrap should not list the store, got %d listings", len(s.lists))
	}
}

func TestRotationService_Serve_WrapRandom(t *testing.T) {
	c := newMockRotationCache()
	c.data["us/eng/5"] = &model.RotationEntry{
		NextIndex: 3,
		Ads:       testAds("a1", "a2", "a3"),
	}
	cfg := DefaultRotationServiceConfig()
	cfg.WrapPolicy = WrapRandom
	svc := NewRotationService(c, newMockAdStore(), cfg).(*rotationService)
	svc.intN = func(n int) int { return n - 1 }

	ad, err := svc.Serve(context.Background(), "us/eng/5")
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if ad.ID != "a3" {
		t.Errorf("Serve() = %s, want a3", ad.ID)
	}
	if c.sets != 0 {
		t.Errorf("wrap should not write the cache, got %d sets", c.sets)
	}
}

func TestRotationService_Serve_FullRotation(t *testing.T) {
	c := newMockRotationCache()
	s := newMockAdStore().withAds("us/eng/5/", testAds("a1", "a2", "a3", "a4", "a5")...)
	svc := newTestRotationService(c, s)

	want := []string{"a1", "a2", "a3", "a4", "a5", "a4", "a4"}
	for i, id := range want {
		ad, err := svc.Serve(context.Background(), "us/eng/5")
		if err != nil {
			t.Fatalf("call %d: Serve() error = %v", i, err)
		}
		if ad.ID != id {
			t.Errorf("call %d: Serve() = %s, want %s", i, ad.ID, id)
		}
	}

	if len(s.lists) != 2 {
		t.Errorf("listings = %d, want 2", len(s.lists))
	}
}

func TestRotationService_Serve_EmptyInventory(t *testing.T) {
	c := newMockRotationCache()
	s := newMockAdStore()
	svc := newTestRotationService(c, s)

	ad, err := svc.Serve(context.Background(), "us/eng/5")
	if !errors.Is(err, ErrNoAdsAvailable) {
		t.Fatalf("Serve() error = %v, want ErrNoAdsAvailable", err)
	}
	if ad != nil {
		t.Errorf("Serve() = %+v, want nil", ad)
	}
	if c.entry("us/eng/5") != nil {
		t.Error("no cache entry should be created for an empty bucket")
	}
}

func TestRotationService_Serve_EmptyContinuationPage(t *testing.T) {
	c := newMockRotationCache()
	c.data["us/eng/5"] = &model.RotationEntry{
		NextIndex:         3,
		Ads:               testAds("a1", "a2", "a3"),
		ContinuationToken: "us/eng/5/a3",
	}
	s := newMockAdStore().withAds("us/eng/5/", testAds("a1", "a2", "a3")...)
	svc := newTestRotationService(c, s)

	ad, err := svc.Serve(context.Background(), "us/eng/5")
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if ad.ID != "a1" {
		t.Errorf("Serve() = %s, want a1", ad.ID)
	}

	entry := c.entry("us/eng/5")
	if entry.HasMore() {
		t.Errorf("ContinuationToken = %q, want cleared", entry.ContinuationToken)
	}
	if entry.NextIndex != 3 || !reflect.DeepEqual(entry.Ads, testAds("a1", "a2", "a3")) {
		t.Errorf("entry = %+v, want the cached page kept", entry)
	}

	// Subsequent calls wrap without listing again.
	if _, err := svc.Serve(context.Background(), "us/eng/5"); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if len(s.lists) != 1 {
		t.Errorf("listings = %d, want 1", len(s.lists))
	}
}

func TestRotationService_Serve_PrefixIsolation(t *testing.T) {
	c := newMockRotationCache()
	s := newMockAdStore().
		withAds("us/eng/1/", testAds("early")...).
		withAds("us/eng/10/", testAds("late")...)
	svc := newTestRotationService(c, s)

	ad, err := svc.Serve(context.Background(), "us/eng/1")
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if ad.ID != "early" {
		t.Errorf("Serve() = %s, want early", ad.ID)
	}
	if entry := c.entry("us/eng/1"); len(entry.Ads) != 1 {
		t.Errorf("Ads = %+v, want only hour 1 ads", entry.Ads)
	}
}

func TestRotationService_Serve_CaseInsensitivePrefix(t *testing.T) {
	c := newMockRotationCache()
	s := newMockAdStore().withAds("us/eng/5/", testAds("a1")...)
	svc := newTestRotationService(c, s)

	ad, err := svc.Serve(context.Background(), "US/Eng/5")
	if err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if ad.ID != "a1" {
		t.Errorf("Serve() = %s, want a1", ad.ID)
	}
	if c.entry("us/eng/5") == nil {
		t.Error("expected entry under the lower-cased key")
	}
}

func TestRotationService_Serve_InvalidKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
	}{
		{"empty", ""},
		{"missing hour", "us/eng"},
		{"extra segment", "us/eng/5/a1"},
		{"empty country", "/eng/5"},
		{"hour out of range", "us/eng/24"},
		{"hour not a number", "us/eng/five"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMockRotationCache()
			c.getFn = func(ctx context.Context, key string) (*model.RotationEntry, error) {
				t.Error("cache should not be read for an invalid key")
				return nil, nil
			}
			s := newMockAdStore()
			svc := newTestRotationService(c, s)

			_, err := svc.Serve(context.Background(), tt.prefix)
			if !errors.Is(err, model.ErrInvalidKey) {
				t.Errorf("Serve() error = %v, want ErrInvalidKey", err)
			}
			if len(s.lists) != 0 || s.gets != 0 {
				t.Error("store should not be touched for an invalid key")
			}
		})
	}
}

func TestRotationService_Serve_Failures(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		setup   func(c *mockRotationCache, s *mockAdStore)
		wantErr error
	}{
		{
			name: "cache get fails",
			setup: func(c *mockRotationCache, s *mockAdStore) {
				c.getFn = func(ctx context.Context, key string) (*model.RotationEntry, error) {
					return nil, errBoom
				}
			},
			wantErr: repository.ErrCacheUnavailable,
		},
		{
			name: "cache set fails on cold fetch",
			setup: func(c *mockRotationCache, s *mockAdStore) {
				s.withAds("us/eng/5/", testAds("a1")...)
				c.setFn = func(ctx context.Context, key string, entry *model.RotationEntry, ttl time.Duration) error {
					return errBoom
				}
			},
			wantErr: repository.ErrCacheUnavailable,
		},
		{
			name: "cache set fails on advance",
			setup: func(c *mockRotationCache, s *mockAdStore) {
				c.data["us/eng/5"] = &model.RotationEntry{NextIndex: 1, Ads: testAds("a1", "a2")}
				c.setFn = func(ctx context.Context, key string, entry *model.RotationEntry, ttl time.Duration) error {
					return errBoom
				}
			},
			wantErr: repository.ErrCacheUnavailable,
		},
		{
			name: "listing fails",
			setup: func(c *mockRotationCache, s *mockAdStore) {
				s.listFn = func(ctx context.Context, prefix string, maxKeys int, token string) (*repository.KeyPage, error) {
					return nil, errBoom
				}
			},
			wantErr: repository.ErrStoreUnavailable,
		},
		{
			name: "next page listing fails",
			setup: func(c *mockRotationCache, s *mockAdStore) {
				c.data["us/eng/5"] = &model.RotationEntry{NextIndex: 1, Ads: testAds("a1"), ContinuationToken: "t"}
				s.listFn = func(ctx context.Context, prefix string, maxKeys int, token string) (*repository.KeyPage, error) {
					return nil, errBoom
				}
			},
			wantErr: repository.ErrStoreUnavailable,
		},
		{
			name: "object get fails",
			setup: func(c *mockRotationCache, s *mockAdStore) {
				s.withAds("us/eng/5/", testAds("a1")...)
				s.getFn = func(ctx context.Context, key string) ([]byte, error) {
					return nil, errBoom
				}
			},
			wantErr: repository.ErrStoreUnavailable,
		},
		{
			name: "object body is not an ad",
			setup: func(c *mockRotationCache, s *mockAdStore) {
				s.objects["us/eng/5/a1"] = []byte("not-json")
			},
			wantErr: repository.ErrStoreUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newMockRotationCache()
			s := newMockAdStore()
			tt.setup(c, s)
			svc := newTestRotationService(c, s)

			ad, err := svc.Serve(context.Background(), "us/eng/5")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Serve() error = %v, want %v", err, tt.wantErr)
			}
			if ad != nil {
				t.Errorf("Serve() = %+v, want nil", ad)
			}
		})
	}
}

func TestRotationService_Serve_PerCallTimeouts(t *testing.T) {
	c := newMockRotationCache()
	var cacheDeadline, storeDeadline bool
	c.getFn = func(ctx context.Context, key string) (*model.RotationEntry, error) {
		_, cacheDeadline = ctx.Deadline()
		return nil, nil
	}
	s := newMockAdStore()
	s.listFn = func(ctx context.Context, prefix string, maxKeys int, token string) (*repository.KeyPage, error) {
		_, storeDeadline = ctx.Deadline()
		if maxKeys != 3 {
			t.Errorf("maxKeys = %d, want 3", maxKeys)
		}
		return &repository.KeyPage{}, nil
	}
	svc := newTestRotationService(c, s)

	if _, err := svc.Serve(context.Background(), "us/eng/5"); !errors.Is(err, ErrNoAdsAvailable) {
		t.Fatalf("Serve() error = %v, want ErrNoAdsAvailable", err)
	}
	if !cacheDeadline {
		t.Error("cache call should carry a deadline")
	}
	if !storeDeadline {
		t.Error("store call should carry a deadline")
	}
}

func TestRotationService_Serve_StoreTimeout(t *testing.T) {
	c := newMockRotationCache()
	s := newMockAdStore()
	s.listFn = func(ctx context.Context, prefix string, maxKeys int, token string) (*repository.KeyPage, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	cfg := DefaultRotationServiceConfig()
	cfg.StoreTimeout = 10 * time.Millisecond
	svc := NewRotationService(c, s, cfg)

	_, err := svc.Serve(context.Background(), "us/eng/5")
	if !errors.Is(err, repository.ErrStoreUnavailable) {
		t.Fatalf("Serve() error = %v, want ErrStoreUnavailable", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v, want deadline exceeded cause", err)
	}
}

func TestRotationService_Serve_CacheTTL(t *testing.T) {
	c := newMockRotationCache()
	s := newMockAdStore().withAds("us/eng/5/", testAds("a1")...)
	cfg := DefaultRotationServiceConfig()
	cfg.CacheTTL = time.Hour
	svc := NewRotationService(c, s, cfg)

	if _, err := svc.Serve(context.Background(), "us/eng/5"); err != nil {
		t.Fatalf("Serve() error = %v", err)
	}
	if c.lastTTL != time.Hour {
		t.Errorf("TTL = %v, want %v", c.lastTTL, time.Hour)
	}
}
