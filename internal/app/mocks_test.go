package app

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
)

type mockResolver struct {
	currentFn func(ctx context.Context) (string, error)
}

func (m *mockResolver) CurrentSessionUserID(ctx context.Context) (string, error) {
	if m.currentFn != nil {
		return m.currentFn(ctx)
	}
	return "", fmt.Errorf("not implemented")
}

type mockDirectory struct {
	getProfileFn func(ctx context.Context, userID string) (*domain.UserProfile, error)
}

func (m *mockDirectory) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

type mockBridge struct {
	getIdentityFn func(ctx context.Context, req domain.IdentityRequest) (*domain.ExternalIdentity, error)
}

func (m *mockBridge) GetCurrentIdentity(ctx context.Context, req domain.IdentityRequest) (*domain.ExternalIdentity, error) {
	if m.getIdentityFn != nil {
		return m.getIdentityFn(ctx, req)
	}
	return nil, fmt.Errorf("not implemented")
}

// mockSettingsStore serves groups from function fields and keeps markers in memory.
type mockSettingsStore struct {
	getGeneralFn   func(ctx context.Context, userID string) (domain.Settings, error)
	getAdvancedFn  func(ctx context.Context, userID string) (domain.Settings, error)
	getDashboardFn func(ctx context.Context, userID string) ([]domain.Dashboard, error)
	getPageRawFn   func(ctx context.Context, userID string) (map[string]domain.StoredValue, error)
	getErr         error
	setErr         error

	mu      sync.Mutex
	markers map[string]string
	sets    []string
}

func (m *mockSettingsStore) GetGeneralSettings(ctx context.Context, userID string) (domain.Settings, error) {
	if m.getGeneralFn != nil {
		return m.getGeneralFn(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSettingsStore) GetAdvancedSettings(ctx context.Context, userID string) (domain.Settings, error) {
	if m.getAdvancedFn != nil {
		return m.getAdvancedFn(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSettingsStore) GetDashboards(ctx context.Context, userID string) ([]domain.Dashboard, error) {
	if m.getDashboardFn != nil {
		return m.getDashboardFn(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSettingsStore) GetPageSettingsRaw(ctx context.Context, userID string) (map[string]domain.StoredValue, error) {
	if m.getPageRawFn != nil {
		return m.getPageRawFn(ctx, userID)
	}
	return nil, fmt.Errorf("not implemented")
}

func (m *mockSettingsStore) Get(_ context.Context, userID, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.markers[userID+"/"+key]
	return v, ok, nil
}

func (m *mockSettingsStore) Set(_ context.Context, userID, key, value string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markers == nil {
		m.markers = make(map[string]string)
	}
	m.markers[userID+"/"+key] = value
	m.sets = append(m.sets, key)
	return nil
}

func (m *mockSettingsStore) Delete(_ context.Context, userID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.markers, userID+"/"+key)
	return nil
}

func (m *mockSettingsStore) marker(userID, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.markers[userID+"/"+key]
	return v, ok
}

type mockSettingsWriter struct {
	putFn func(ctx context.Context, userID string, scope domain.Scope, key string, value json.RawMessage) error
}

func (m *mockSettingsWriter) PutSetting(ctx context.Context, userID string, scope domain.Scope, key string, value json.RawMessage) error {
	if m.putFn != nil {
		return m.putFn(ctx, userID, scope, key, value)
	}
	return fmt.Errorf("not implemented")
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (r *recordingObserver) ObserveAuthentication(outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

// statusError mimics an HTTP failure from the identity layer.
type statusError struct{ status int }

func (e *statusError) Error() string   { return fmt.Sprintf("jira responded %d", e.status) }
func (e *statusError) HTTPStatus() int { return e.status }

type integrationError struct{}

func (integrationError) Error() string          { return "no jira credentials" }
func (integrationError) NeedsIntegration() bool { return true }
