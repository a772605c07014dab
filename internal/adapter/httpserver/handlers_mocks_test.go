package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/lokeshkumarbalu/jira-assistant/internal/app"
	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
	"github.com/lokeshkumarbalu/jira-assistant/internal/platform/config"
)

// --- Mock implementations ---

type mockBootstrapper struct {
	authenticateFn func(ctx context.Context, sess *app.Session, userID string) (bool, error)
}

func (m *mockBootstrapper) Authenticate(ctx context.Context, sess *app.Session, userID string) (bool, error) {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx, sess, userID)
	}
	return false, errors.New("not implemented")
}

type mockSettingsService struct {
	putFn func(ctx context.Context, userID string, scope domain.Scope, key string, value json.RawMessage) error
}

func (m *mockSettingsService) Put(ctx context.Context, userID string, scope domain.Scope, key string, value json.RawMessage) error {
	if m.putFn != nil {
		return m.putFn(ctx, userID, scope, key, value)
	}
	return errors.New("not implemented")
}

type mockTrackerService struct {
	loadFn func(ctx context.Context, userID string) (domain.TrackerSettings, error)
	saveFn func(ctx context.Context, userID, key, value string) error
}

func (m *mockTrackerService) Load(ctx context.Context, userID string) (domain.TrackerSettings, error) {
	if m.loadFn != nil {
		return m.loadFn(ctx, userID)
	}
	return domain.TrackerSettings{}, errors.New("not implemented")
}

func (m *mockTrackerService) Save(ctx context.Context, userID, key, value string) error {
	if m.saveFn != nil {
		return m.saveFn(ctx, userID, key, value)
	}
	return errors.New("not implemented")
}

type mockIntegrator struct {
	linkFn   func(ctx context.Context, userID, code string) error
	unlinkFn func(ctx context.Context, userID string) error
}

func (m *mockIntegrator) AuthCodeURL(state string) string {
	return "https://auth.example.test/authorize?state=" + state
}

func (m *mockIntegrator) Link(ctx context.Context, userID, code string) error {
	if m.linkFn != nil {
		return m.linkFn(ctx, userID, code)
	}
	return errors.New("not implemented")
}

func (m *mockIntegrator) Unlink(ctx context.Context, userID string) error {
	if m.unlinkFn != nil {
		return m.unlinkFn(ctx, userID)
	}
	return errors.New("not implemented")
}

type mockUsers struct {
	getProfileFn func(ctx context.Context, userID string) (*domain.UserProfile, error)
	upsertFn     func(ctx context.Context, profile domain.UserProfile) error
}

func (m *mockUsers) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockUsers) Upsert(ctx context.Context, profile domain.UserProfile) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, profile)
	}
	return errors.New("not implemented")
}

// memorySnapshots is an in-memory SnapshotStore.
type memorySnapshots struct {
	mu      sync.Mutex
	data    map[string]json.RawMessage
	saveErr error
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{data: make(map[string]json.RawMessage)}
}

func (m *memorySnapshots) Save(_ context.Context, key string, snapshot any) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	return nil
}

func (m *memorySnapshots) Load(_ context.Context, key string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNoActiveSession
	}
	return raw, nil
}

func (m *memorySnapshots) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memorySnapshots) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	return out
}

// --- Test helpers ---

const testCSRFToken = "test-csrf-token"

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:            "test",
		Port:              "0",
		SessionSecret:     "test-secret-key-32-bytes-long!!!",
		SessionMaxAge:     time.Hour,
		AuthRatePerSecond: 1000,
		AuthBurst:         1000,
	}
}

func newTestServer(t *testing.T, opts ...func(*Deps)) *Server {
	t.Helper()

	deps := Deps{
		Bootstrapper: &mockBootstrapper{},
		Settings:     &mockSettingsService{},
		Tracker:      &mockTrackerService{},
		Snapshots:    newMemorySnapshots(),
		Integrator:   &mockIntegrator{},
		Users:        &mockUsers{},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	return NewServer(testConfig(), deps, clock)
}

func withHealthChecks(checks ...HealthCheck) func(*Deps) {
	return func(d *Deps) {
		d.HealthChecks = checks
	}
}

// serve runs req through the full router.
func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

// addSessionCookie encodes values into a session cookie and attaches it to req.
func addSessionCookie(t *testing.T, srv *Server, req *http.Request, values map[any]any) {
	t.Helper()

	blank := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := srv.sessionStore.New(blank, sessionName)
	require.NoError(t, err)
	for k, v := range values {
		sess.Values[k] = v
	}

	rec := httptest.NewRecorder()
	require.NoError(t, sess.Save(blank, rec))
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
}

func addBoundUser(t *testing.T, srv *Server, req *http.Request, sid, userID string) {
	t.Helper()
	addSessionCookie(t, srv, req, map[any]any{sessionKeyID: sid, sessionKeyUserID: userID})
}

func addCSRF(req *http.Request) {
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	req.Header.Set(csrfHeader, testCSRFToken)
}

// decodeSession reads the session cookie set on rec.
func decodeSession(t *testing.T, srv *Server, rec *httptest.ResponseRecorder) map[any]any {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionName {
			req.AddCookie(c)
		}
	}
	sess, err := srv.sessionStore.Get(req, sessionName)
	require.NoError(t, err)
	return sess.Values
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionName {
			return c
		}
	}
	return nil
}
