package usecase

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hszk-dev/adrotate/internal/domain/model"
	"github.com/hszk-dev/adrotate/internal/domain/repository"
)

// mockRotationCache is an in-memory RotationCache with optional error injection.
type mockRotationCache struct {
	mu      sync.Mutex
	data    map[string]*model.RotationEntry
	getFn   func(ctx context.Context, key string) (*model.RotationEntry, error)
	setFn   func(ctx context.Context, key string, entry *model.RotationEntry, ttl time.Duration) error
	sets    int
	lastTTL time.Duration
}

func newMockRotationCache() *mockRotationCache {
	return &mockRotationCache{
		data: make(map[string]*model.RotationEntry),
	}
}

func (m *mockRotationCache) Get(ctx context.Context, key string) (*model.RotationEntry, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	cp := *entry
	return &cp, nil
}

func (m *mockRotationCache) Set(ctx context.Context, key string, entry *model.RotationEntry, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, entry, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.data[key] = &cp
	m.sets++
	m.lastTTL = ttl
	return nil
}

func (m *mockRotationCache) entry(key string) *model.RotationEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

// mockAdStore is an in-memory AdStore that pages keys lexicographically.
// Continuation tokens are the last key of the previous page.
type mockAdStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	listFn  func(ctx context.Context, prefix string, maxKeys int, token string) (*repository.KeyPage, error)
	getFn   func(ctx context.Context, key string) ([]byte, error)
	putFn   func(ctx context.Context, key string, body []byte, contentType string) error
	lists   []string
	gets    int
}

func newMockAdStore() *mockAdStore {
	return &mockAdStore{
		objects: make(map[string][]byte),
	}
}

// withAds seeds one object per ad under prefix ("country/lang/hour/").
func (m *mockAdStore) withAds(prefix string, ads ...model.Ad) *mockAdStore {
	for _, ad := range ads {
		body, _ := json.Marshal(ad)
		m.objects[prefix+ad.ID] = body
	}
	return m
}

func (m *mockAdStore) ListKeys(ctx context.Context, prefix string, maxKeys int, token string) (*repository.KeyPage, error) {
	m.mu.Lock()
	m.lists = append(m.lists, token)
	m.mu.Unlock()

	if m.listFn != nil {
		return m.listFn(ctx, prefix, maxKeys, token)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) && k > token {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	page := &repository.KeyPage{Keys: keys}
	if len(keys) > maxKeys {
		page.Keys = keys[:maxKeys]
		page.ContinuationToken = keys[maxKeys-1]
	}
	return page, nil
}

func (m *mockAdStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	m.gets++
	m.mu.Unlock()

	if m.getFn != nil {
		return m.getFn(ctx, key)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.objects[key]
	if !ok {
		return nil, repository.ErrObjectNotFound
	}
	return body, nil
}

func (m *mockAdStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if m.putFn != nil {
		return m.putFn(ctx, key, body, contentType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = body
	return nil
}

func (m *mockAdStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mockMessageQueue provides a configurable mock for MessageQueue.
type mockMessageQueue struct {
	publishCampaignTaskFn  func(ctx context.Context, task repository.CampaignTask) error
	consumeCampaignTasksFn func(ctx context.Context, handler func(task repository.CampaignTask) error) error
}

func (m *mockMessageQueue) PublishCampaignTask(ctx context.Context, task repository.CampaignTask) error {
	if m.publishCampaignTaskFn != nil {
		return m.publishCampaignTaskFn(ctx, task)
	}
	return nil
}

func (m *mockMessageQueue) ConsumeCampaignTasks(ctx context.Context, handler func(task repository.CampaignTask) error) error {
	if m.consumeCampaignTasksFn != nil {
		return m.consumeCampaignTasksFn(ctx, handler)
	}
	return nil
}

func (m *mockMessageQueue) Close() error {
	return nil
}

// mockRotationService provides a configurable mock for RotationService.
type mockRotationService struct {
	serveFn func(ctx context.Context, prefix string) (*model.Ad, error)
}

func (m *mockRotationService) Serve(ctx context.Context, prefix string) (*model.Ad, error) {
	if m.serveFn != nil {
		return m.serveFn(ctx, prefix)
	}
	return nil, nil
}

// mockZoneResolver provides a configurable mock for ZoneResolver.
type mockZoneResolver struct {
	availabilityZoneFn func(ctx context.Context) (string, error)
}

func (m *mockZoneResolver) AvailabilityZone(ctx context.Context) (string, error) {
	if m.availabilityZoneFn != nil {
		return m.availabilityZoneFn(ctx)
	}
	return "", nil
}
