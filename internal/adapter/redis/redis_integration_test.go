package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
)

func TestNewClient_Connects(t *testing.T) {
	client := setupTestClient(t)
	require.NoError(t, client.Ping(context.Background()).Err())
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestSettingsStore_RedisLayerSharedAcrossInstances(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	source := &mockSettingsSource{getGroup: func(context.Context, string, domain.Scope) (domain.Settings, error) {
		return domain.Settings{"dateFormat": "YYYY-MM-DD", "hours": 8}, nil
	}}

	first := NewSettingsStore(client, source, newMemoryMarkers(), time.Hour, clockwork.NewRealClock(), nil)
	_, err := first.GetGeneralSettings(ctx, "u-1")
	require.NoError(t, err)

	obs := newCountingObserver()
	second := NewSettingsStore(client, source, newMemoryMarkers(), time.Hour, clockwork.NewRealClock(), obs)
	got, err := second.GetGeneralSettings(ctx, "u-1")
	require.NoError(t, err)

	assert.Equal(t, 1, source.calls(), "second instance should be served from Redis")
	assert.Equal(t, 1, obs.hits[layerRedis])
	assert.Equal(t, "YYYY-MM-DD", got["dateFormat"])
	assert.InDelta(t, 8.0, got["hours"], 0)

	ttl, err := client.TTL(ctx, groupKey(domain.ScopeGeneral, "u-1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestSettingsStore_PutSettingDeletesRedisCopy(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	source := &mockSettingsSource{
		getGroup: func(context.Context, string, domain.Scope) (domain.Settings, error) {
			return domain.Settings{"a": 1}, nil
		},
		putFn: func(context.Context, string, domain.Scope, string, json.RawMessage) error { return nil },
	}
	store := NewSettingsStore(client, source, newMemoryMarkers(), time.Hour, clockwork.NewRealClock(), nil)

	_, err := store.GetAdvancedSettings(ctx, "u-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, client.Exists(ctx, groupKey(domain.ScopeAdvanced, "u-1")).Val())

	require.NoError(t, store.PutSetting(ctx, "u-1", domain.ScopeAdvanced, "a", json.RawMessage(`2`)))
	assert.EqualValues(t, 0, client.Exists(ctx, groupKey(domain.ScopeAdvanced, "u-1")).Val())
}

func TestSettingsStore_MarkersCachedAsHash(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	markers := newMemoryMarkers()
	require.NoError(t, markers.Set(ctx, "u-1", "TR_MinTime", "00:10"))
	store := NewSettingsStore(client, &mockSettingsSource{}, markers, time.Hour, clockwork.NewRealClock(), nil)

	v, found, err := store.Get(ctx, "u-1", "TR_MinTime")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "00:10", v)

	_, found, err = store.Get(ctx, "u-1", "LV")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, markers.loadCount(), "absent keys are answered from the cached hash")

	require.NoError(t, store.Set(ctx, "u-1", "LV", "2026-01-15T14:00:00Z"))
	v, found, err = store.Get(ctx, "u-1", "LV")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2026-01-15T14:00:00Z", v)
	assert.Equal(t, 2, markers.loadCount())
}

func TestSettingsStore_MarkersForUserWithoutAny(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	markers := newMemoryMarkers()
	store := NewSettingsStore(client, &mockSettingsSource{}, markers, time.Hour, clockwork.NewRealClock(), nil)

	for range 3 {
		_, found, err := store.Get(ctx, "u-empty", "LV")
		require.NoError(t, err)
		assert.False(t, found)
	}
	assert.Equal(t, 1, markers.loadCount())
}

func TestSettingsStore_MarkersWriteDuringLoadIsNotCached(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	markers := newMemoryMarkers()
	require.NoError(t, markers.Set(ctx, "u-race", "LV", "2026-01-14T09:00:00Z"))
	store := NewSettingsStore(client, &mockSettingsSource{}, markers, time.Hour, clockwork.NewRealClock(), nil)

	markers.afterLoad = func() {
		require.NoError(t, store.Set(ctx, "u-race", "LV", "2026-01-15T09:00:00Z"))
	}

	v, _, err := store.Get(ctx, "u-race", "LV")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-14T09:00:00Z", v, "the load itself answers with what it read")

	exists, err := client.Exists(ctx, markersKey("u-race")).Result()
	require.NoError(t, err)
	assert.Zero(t, exists, "a load overlapping a write must not fill the cache")

	v, _, err = store.Get(ctx, "u-race", "LV")
	require.NoError(t, err)
	assert.Equal(t, "2026-01-15T09:00:00Z", v)
	assert.Equal(t, 2, markers.loadCount())
}

func TestSnapshotStore(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	store := NewSnapshotStore(client, time.Minute)

	_, err := store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)

	require.NoError(t, store.Save(ctx, "sess-1", map[string]any{"authenticated": true, "userId": "u-1"}))

	raw, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"authenticated":true,"userId":"u-1"}`, string(raw))

	ttl := client.TTL(ctx, snapshotKey("sess-1")).Val()
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, store.Delete(ctx, "sess-1"))
	_, err = store.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, domain.ErrNoActiveSession)
}

func TestSettingsInvalidation_MultiInstance(t *testing.T) {
	client := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stores := make([]*SettingsStore, 3)
	var wg sync.WaitGroup
	for i := range stores {
		stores[i] = NewSettingsStore(client, &mockSettingsSource{}, newMemoryMarkers(), time.Hour, clockwork.NewRealClock(), nil)
		stores[i].mem.set(groupKey(domain.ScopeGeneral, "u-1"), domain.Settings{"a": 1})

		sub := NewSettingsInvalidationSubscriber(client, stores[i])
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.Start(ctx)
		}()
	}

	// Wait for subscriptions to be ready
	require.Eventually(t, func() bool {
		n, err := client.PubSubNumSub(ctx, settingsInvalidationChannel).Result()
		return err == nil && n[settingsInvalidationChannel] == 3
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, PublishSettingsInvalidation(ctx, client, "u-1", domain.ScopeGeneral))

	for i, store := range stores {
		assert.Eventually(t, func() bool {
			_, hit := store.mem.get(groupKey(domain.ScopeGeneral, "u-1"))
			return !hit
		}, 2*time.Second, 20*time.Millisecond, "instance %d should have invalidated its memory cache", i+1)
	}

	cancel()
	wg.Wait()
}
