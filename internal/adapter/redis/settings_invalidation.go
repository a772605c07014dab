package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
)

const settingsInvalidationChannel = "settings:invalidate"

// SettingsInvalidationSubscriber drops in-memory groups written by other instances.
type SettingsInvalidationSubscriber struct {
	rdb   *goredis.Client
	store *SettingsStore
}

func NewSettingsInvalidationSubscriber(rdb *goredis.Client, store *SettingsStore) *SettingsInvalidationSubscriber {
	return &SettingsInvalidationSubscriber{rdb: rdb, store: store}
}

func (s *SettingsInvalidationSubscriber) Start(ctx context.Context) {
	pubsub := s.rdb.Subscribe(ctx, settingsInvalidationChannel)
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case msg := <-ch:
			if msg == nil {
				return
			}
			s.handleInvalidation(msg.Payload)
		case <-ctx.Done():
			return
		}
	}
}

// handleInvalidation only touches the local layer; the writer already deleted the Redis copy.
func (s *SettingsInvalidationSubscriber) handleInvalidation(payload string) {
	scope, userID, ok := strings.Cut(payload, ":")
	if !ok || userID == "" || !domain.Scope(scope).Valid() {
		slog.Warn("Malformed settings invalidation message", "payload", payload)
		return
	}

	s.store.invalidateLocal(groupKey(domain.Scope(scope), userID))
	slog.Debug("Settings cache invalidated via pub/sub", "user_id", userID, "scope", scope)
}

func PublishSettingsInvalidation(ctx context.Context, rdb goredis.Cmdable, userID string, scope domain.Scope) error {
	if err := rdb.Publish(ctx, settingsInvalidationChannel, string(scope)+":"+userID).Err(); err != nil {
		return fmt.Errorf("failed to publish settings invalidation: %w", err)
	}
	return nil
}
