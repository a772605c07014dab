package domain

import (
	"context"
	"encoding/json"
)

// Settings is a flat key/value layer.
type Settings map[string]any

// Scope names a settings group that can be written through the API.
type Scope string

const (
	ScopeGeneral  Scope = "general"
	ScopeAdvanced Scope = "advanced"
	ScopePage     Scope = "page"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeGeneral, ScopeAdvanced, ScopePage:
		return true
	}
	return false
}

type Dashboard struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Position int             `json:"position"`
	Layout   json.RawMessage `json:"layout,omitempty"`
}

// SettingsRepository serves the structured settings groups.
type SettingsRepository interface {
	GetGeneralSettings(ctx context.Context, userID string) (Settings, error)
	GetAdvancedSettings(ctx context.Context, userID string) (Settings, error)
	GetDashboards(ctx context.Context, userID string) ([]Dashboard, error)
	GetPageSettingsRaw(ctx context.Context, userID string) (map[string]StoredValue, error)
}

// MarkerStore holds scalar per-user values such as the last-visited markers.
// Get reports found=false for keys that were never set.
type MarkerStore interface {
	Get(ctx context.Context, userID, key string) (value string, found bool, err error)
	Set(ctx context.Context, userID, key, value string) error
	Delete(ctx context.Context, userID, key string) error
}

type SettingsStore interface {
	SettingsRepository
	MarkerStore
}

// SettingsWriter persists one settings value and drops cached copies of its group.
type SettingsWriter interface {
	PutSetting(ctx context.Context, userID string, scope Scope, key string, value json.RawMessage) error
}
