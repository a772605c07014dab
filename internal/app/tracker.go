package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
)

// ErrInvalidSetting marks values rejected before they reach storage.
var ErrInvalidSetting = errors.New("invalid setting")

type TrackerService struct {
	markers domain.MarkerStore
}

func NewTrackerService(markers domain.MarkerStore) *TrackerService {
	return &TrackerService{markers: markers}
}

func (s *TrackerService) Load(ctx context.Context, userID string) (domain.TrackerSettings, error) {
	values := make(map[string]string, len(domain.TrackerKeys))
	for _, key := range domain.TrackerKeys {
		v, found, err := s.markers.Get(ctx, userID, key)
		if err != nil {
			return domain.TrackerSettings{}, fmt.Errorf("failed to read %s: %w", key, err)
		}
		if found {
			values[key] = v
		}
	}

	settings, err := domain.TrackerSettingsFrom(values)
	if err != nil {
		return domain.TrackerSettings{}, &domain.AuthError{Kind: domain.KindDataCorruption, Op: "tracker_settings", Err: err}
	}
	return settings, nil
}

// Save stores one tracker value. Empty values and disabled pause flags are
// deleted so the key falls back to its default.
func (s *TrackerService) Save(ctx context.Context, userID, key, value string) error {
	if err := domain.ValidateTrackerValue(key, value); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}

	if isUnset(key, value) {
		if err := s.markers.Delete(ctx, userID, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
		return nil
	}

	if err := s.markers.Set(ctx, userID, key, value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func isUnset(key, value string) bool {
	if value == "" {
		return true
	}
	if key == domain.TrackerPauseOnLock || key == domain.TrackerPauseOnIdle {
		b, _ := strconv.ParseBool(value)
		return !b
	}
	return false
}
