package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
)

const (
	settingsCacheTTL = 1 * time.Hour
	markersCacheTTL  = 1 * time.Hour

	// markersVersionTTL outlives every hash filled under a version.
	markersVersionTTL = 2 * markersCacheTTL

	// markersLoadedField marks a markers hash as a complete copy, so users
	// without any markers are cached too.
	markersLoadedField = "\x00loaded"

	layerMemory = "memory"
	layerRedis  = "redis"

	cacheSettings = "settings"
	cacheMarkers  = "markers"
)

var errMarkersChanged = errors.New("markers changed during load")

// SettingsSource is the durable settings store behind the cache.
type SettingsSource interface {
	GetGroup(ctx context.Context, userID string, scope domain.Scope) (domain.Settings, error)
	GetDashboards(ctx context.Context, userID string) ([]domain.Dashboard, error)
	GetPageSettingsRaw(ctx context.Context, userID string) (map[string]domain.StoredValue, error)
	PutSetting(ctx context.Context, userID string, scope domain.Scope, key string, value json.RawMessage) error
}

// MarkerSource is the durable marker store behind the cache.
type MarkerSource interface {
	GetAll(ctx context.Context, userID string) (map[string]string, error)
	Set(ctx context.Context, userID, key, value string) error
	Delete(ctx context.Context, userID, key string) error
}

// CacheObserver counts lookups per cache (settings or markers) and layer.
type CacheObserver interface {
	Hit(cache, layer string)
	Miss(cache, layer string)
	Invalidated()
}

type noopCacheObserver struct{}

func (noopCacheObserver) Hit(string, string)  {}
func (noopCacheObserver) Miss(string, string) {}
func (noopCacheObserver) Invalidated()        {}

// SettingsStore serves the general and advanced groups through an in-memory
// layer and Redis before reading PostgreSQL. Markers are cached as one Redis
// hash per user. Dashboards and page settings are read through.
// Redis failures are logged and fall back to the source.
type SettingsStore struct {
	rdb      goredis.UniversalClient
	settings SettingsSource
	markers  MarkerSource
	mem      *memoryCache
	clock    clockwork.Clock
	observer CacheObserver
}

var (
	_ domain.SettingsStore  = (*SettingsStore)(nil)
	_ domain.SettingsWriter = (*SettingsStore)(nil)
)

func NewSettingsStore(rdb goredis.UniversalClient, settings SettingsSource, markers MarkerSource, memCacheTTL time.Duration, clock clockwork.Clock, observer CacheObserver) *SettingsStore {
	if observer == nil {
		observer = noopCacheObserver{}
	}
	return &SettingsStore{
		rdb:      rdb,
		settings: settings,
		markers:  markers,
		mem:      newMemoryCache(memCacheTTL, clock),
		clock:    clock,
		observer: observer,
	}
}

// StartEvictionTimer runs a periodic goroutine that evicts expired in-memory entries.
// Returns a stop function that should be deferred.
func (s *SettingsStore) StartEvictionTimer(interval time.Duration) func() {
	ticker := s.clock.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.Chan():
				if evicted := s.mem.evictExpired(); evicted > 0 {
					slog.Debug("Evicted expired settings cache entries", "count", evicted, "remaining", s.mem.size())
				}
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }
}

func (s *SettingsStore) GetGeneralSettings(ctx context.Context, userID string) (domain.Settings, error) {
	return s.group(ctx, userID, domain.ScopeGeneral)
}

func (s *SettingsStore) GetAdvancedSettings(ctx context.Context, userID string) (domain.Settings, error) {
	return s.group(ctx, userID, domain.ScopeAdvanced)
}

func (s *SettingsStore) group(ctx context.Context, userID string, scope domain.Scope) (domain.Settings, error) {
	key := groupKey(scope, userID)

	// Layer 1: in-memory cache
	if settings, ok := s.mem.get(key); ok {
		s.observer.Hit(cacheSettings, layerMemory)
		return maps.Clone(settings), nil
	}
	s.observer.Miss(cacheSettings, layerMemory)

	// Layer 2: Redis cache
	if settings, ok := s.getCached(ctx, key, userID); ok {
		s.observer.Hit(cacheSettings, layerRedis)
		s.mem.set(key, settings)
		return maps.Clone(settings), nil
	}
	s.observer.Miss(cacheSettings, layerRedis)

	// Layer 3: PostgreSQL
	settings, err := s.settings.GetGroup(ctx, userID, scope)
	if err != nil {
		return nil, fmt.Errorf("%s settings lookup failed: %w", scope, err)
	}

	s.mem.set(key, settings)
	s.writeCache(ctx, key, userID, settings)
	return maps.Clone(settings), nil
}

func (s *SettingsStore) GetDashboards(ctx context.Context, userID string) ([]domain.Dashboard, error) {
	return s.settings.GetDashboards(ctx, userID)
}

func (s *SettingsStore) GetPageSettingsRaw(ctx context.Context, userID string) (map[string]domain.StoredValue, error) {
	return s.settings.GetPageSettingsRaw(ctx, userID)
}

// PutSetting writes through to PostgreSQL and then invalidates the group.
func (s *SettingsStore) PutSetting(ctx context.Context, userID string, scope domain.Scope, key string, value json.RawMessage) error {
	if err := s.settings.PutSetting(ctx, userID, scope, key, value); err != nil {
		return err
	}
	if scope == domain.ScopePage {
		return nil
	}

	if err := s.Invalidate(ctx, userID, scope); err != nil {
		slog.WarnContext(ctx, "Failed to invalidate settings cache", "user_id", userID, "scope", scope, "error", err)
	}
	if err := PublishSettingsInvalidation(ctx, s.rdb, userID, scope); err != nil {
		slog.WarnContext(ctx, "Failed to publish settings invalidation", "user_id", userID, "scope", scope, "error", err)
	}
	return nil
}

// Invalidate evicts a group from both the in-memory cache and Redis.
func (s *SettingsStore) Invalidate(ctx context.Context, userID string, scope domain.Scope) error {
	key := groupKey(scope, userID)
	s.invalidateLocal(key)

	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate settings cache: %w", err)
	}
	return nil
}

func (s *SettingsStore) invalidateLocal(key string) {
	s.mem.invalidate(key)
	s.observer.Invalidated()
}

func (s *SettingsStore) writeCache(ctx context.Context, key, userID string, settings domain.Settings) {
	encoded, err := json.Marshal(settings)
	if err != nil {
		slog.WarnContext(ctx, "Failed to marshal settings for Redis cache", "user_id", userID, "error", err)
		return
	}

	if err := s.rdb.Set(ctx, key, encoded, settingsCacheTTL).Err(); err != nil {
		slog.WarnContext(ctx, "Failed to populate Redis settings cache", "user_id", userID, "error", err)
	}
}

func (s *SettingsStore) getCached(ctx context.Context, key, userID string) (domain.Settings, bool) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			slog.WarnContext(ctx, "Redis settings cache GET failed", "user_id", userID, "error", err)
		}
		return nil, false
	}

	var settings domain.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		slog.WarnContext(ctx, "Failed to unmarshal cached settings", "user_id", userID, "error", err)
		return nil, false
	}
	if settings == nil {
		settings = domain.Settings{}
	}
	return settings, true
}

// Get reads a marker from the cached hash, loading the full set on a miss.
func (s *SettingsStore) Get(ctx context.Context, userID, key string) (string, bool, error) {
	hk := markersKey(userID)

	cached, err := s.rdb.HGetAll(ctx, hk).Result()
	switch {
	case err != nil:
		slog.WarnContext(ctx, "Redis markers cache read failed", "user_id", userID, "error", err)
	case cached[markersLoadedField] != "":
		s.observer.Hit(cacheMarkers, layerRedis)
		v, ok := cached[key]
		return v, ok, nil
	}
	s.observer.Miss(cacheMarkers, layerRedis)

	// The version is read before the durable load; writes bump it, so a load
	// that overlaps a write is not cached.
	version, versionOK := s.markersVersion(ctx, userID)

	all, err := s.markers.GetAll(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("marker lookup failed: %w", err)
	}
	if versionOK {
		s.writeMarkers(ctx, userID, version, all)
	}

	v, ok := all[key]
	return v, ok, nil
}

// Set writes the marker durably and drops the cached hash.
func (s *SettingsStore) Set(ctx context.Context, userID, key, value string) error {
	if err := s.markers.Set(ctx, userID, key, value); err != nil {
		return err
	}
	s.dropMarkers(ctx, userID)
	return nil
}

func (s *SettingsStore) Delete(ctx context.Context, userID, key string) error {
	if err := s.markers.Delete(ctx, userID, key); err != nil {
		return err
	}
	s.dropMarkers(ctx, userID)
	return nil
}

func (s *SettingsStore) markersVersion(ctx context.Context, userID string) (string, bool) {
	v, err := s.rdb.Get(ctx, markersVersionKey(userID)).Result()
	if err != nil && !errors.Is(err, goredis.Nil) {
		slog.WarnContext(ctx, "Redis markers version read failed", "user_id", userID, "error", err)
		return "", false
	}
	return v, true
}

func (s *SettingsStore) writeMarkers(ctx context.Context, userID, version string, all map[string]string) {
	hk := markersKey(userID)
	vk := markersVersionKey(userID)
	fields := make(map[string]any, len(all)+1)
	for k, v := range all {
		fields[k] = v
	}
	fields[markersLoadedField] = "1"

	err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
		current, err := tx.Get(ctx, vk).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return err
		}
		if current != version {
			return errMarkersChanged
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Del(ctx, hk)
			pipe.HSet(ctx, hk, fields)
			pipe.Expire(ctx, hk, markersCacheTTL)
			return nil
		})
		return err
	}, vk)

	switch {
	case err == nil:
	case errors.Is(err, errMarkersChanged), errors.Is(err, goredis.TxFailedErr):
		slog.DebugContext(ctx, "Markers changed during load, skipping cache fill", "user_id", userID)
	default:
		slog.WarnContext(ctx, "Failed to populate Redis markers cache", "user_id", userID, "error", err)
	}
}

func (s *SettingsStore) dropMarkers(ctx context.Context, userID string) {
	vk := markersVersionKey(userID)

	pipe := s.rdb.TxPipeline()
	pipe.Incr(ctx, vk)
	pipe.Expire(ctx, vk, markersVersionTTL)
	pipe.Del(ctx, markersKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		slog.WarnContext(ctx, "Failed to invalidate Redis markers cache", "user_id", userID, "error", err)
	}
}

func groupKey(scope domain.Scope, userID string) string {
	return "settings:" + string(scope) + ":" + userID
}

func markersKey(userID string) string {
	return "markers:" + userID
}

func markersVersionKey(userID string) string {
	return "markers:version:" + userID
}

// memoryCache is an in-memory L1 cache with TTL-based expiry.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*memoryCacheEntry
	ttl     time.Duration
	clock   clockwork.Clock
}

type memoryCacheEntry struct {
	settings  domain.Settings
	expiresAt time.Time
}

func newMemoryCache(ttl time.Duration, clock clockwork.Clock) *memoryCache {
	return &memoryCache{
		entries: make(map[string]*memoryCacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

func (c *memoryCache) get(key string) (domain.Settings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || c.clock.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.settings, true
}

func (c *memoryCache) set(key string, settings domain.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &memoryCacheEntry{
		settings:  settings,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

func (c *memoryCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *memoryCache) evictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	evicted := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	return evicted
}
