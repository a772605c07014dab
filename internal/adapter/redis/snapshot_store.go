package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
)

// SnapshotStore keeps the last bootstrap result per browser session.
type SnapshotStore struct {
	rdb goredis.Cmdable
	ttl time.Duration
}

func NewSnapshotStore(rdb goredis.Cmdable, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{rdb: rdb, ttl: ttl}
}

func (s *SnapshotStore) Save(ctx context.Context, sessionKey string, snapshot any) error {
	encoded, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKey(sessionKey), encoded, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session snapshot: %w", err)
	}
	return nil
}

// Load returns domain.ErrNoActiveSession when nothing is stored for sessionKey.
func (s *SnapshotStore) Load(ctx context.Context, sessionKey string) (json.RawMessage, error) {
	data, err := s.rdb.Get(ctx, snapshotKey(sessionKey)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNoActiveSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}
	return json.RawMessage(data), nil
}

func (s *SnapshotStore) Delete(ctx context.Context, sessionKey string) error {
	if err := s.rdb.Del(ctx, snapshotKey(sessionKey)).Err(); err != nil {
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	return nil
}

func snapshotKey(sessionKey string) string {
	return "session_snapshot:" + sessionKey
}
