package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
)

type mockSettingsSource struct {
	mu        sync.Mutex
	getCalls  int
	getGroup  func(ctx context.Context, userID string, scope domain.Scope) (domain.Settings, error)
	putFn     func(ctx context.Context, userID string, scope domain.Scope, key string, value json.RawMessage) error
	dashboard func(ctx context.Context, userID string) ([]domain.Dashboard, error)
	pageRaw   func(ctx context.Context, userID string) (map[string]domain.StoredValue, error)
}

func (m *mockSettingsSource) GetGroup(ctx context.Context, userID string, scope domain.Scope) (domain.Settings, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()
	if m.getGroup != nil {
		return m.getGroup(ctx, userID, scope)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSettingsSource) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls
}

func (m *mockSettingsSource) GetDashboards(ctx context.Context, userID string) ([]domain.Dashboard, error) {
	if m.dashboard != nil {
		return m.dashboard(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSettingsSource) GetPageSettingsRaw(ctx context.Context, userID string) (map[string]domain.StoredValue, error) {
	if m.pageRaw != nil {
		return m.pageRaw(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSettingsSource) PutSetting(ctx context.Context, userID string, scope domain.Scope, key string, value json.RawMessage) error {
	if m.putFn != nil {
		return m.putFn(ctx, userID, scope, key, value)
	}
	return fmt.Errorf("not implemented")
}

// memoryMarkers is an in-memory MarkerSource that counts full loads.
type memoryMarkers struct {
	mu     sync.Mutex
	values map[string]map[string]string
	loads  int

	// afterLoad runs once, after the next GetAll has taken its copy.
	afterLoad func()
}

func newMemoryMarkers() *memoryMarkers {
	return &memoryMarkers{values: make(map[string]map[string]string)}
}

func (m *memoryMarkers) GetAll(_ context.Context, userID string) (map[string]string, error) {
	m.mu.Lock()
	m.loads++
	out := make(map[string]string, len(m.values[userID]))
	for k, v := range m.values[userID] {
		out[k] = v
	}
	hook := m.afterLoad
	m.afterLoad = nil
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *memoryMarkers) Set(_ context.Context, userID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[userID] == nil {
		m.values[userID] = make(map[string]string)
	}
	m.values[userID][key] = value
	return nil
}

func (m *memoryMarkers) Delete(_ context.Context, userID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values[userID], key)
	return nil
}

func (m *memoryMarkers) loadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}

type countingObserver struct {
	mu            sync.Mutex
	hits, misses  map[string]int
	invalidations int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{hits: map[string]int{}, misses: map[string]int{}}
}

func (o *countingObserver) Hit(_, layer string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.hits[layer]++
}

func (o *countingObserver) Miss(_, layer string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.misses[layer]++
}

func (o *countingObserver) Invalidated() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.invalidations++
}
