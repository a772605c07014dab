package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
)

type SettingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

func (r *SettingsRepo) GetGeneralSettings(ctx context.Context, userID string) (domain.Settings, error) {
	return r.group(ctx, userID, domain.ScopeGeneral)
}

func (r *SettingsRepo) GetAdvancedSettings(ctx context.Context, userID string) (domain.Settings, error) {
	return r.group(ctx, userID, domain.ScopeAdvanced)
}

// GetGroup loads one scope as a flat layer. Unknown users yield an empty layer.
func (r *SettingsRepo) GetGroup(ctx context.Context, userID string, scope domain.Scope) (domain.Settings, error) {
	return r.group(ctx, userID, scope)
}

func (r *SettingsRepo) group(ctx context.Context, userID string, scope domain.Scope) (domain.Settings, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, value FROM user_settings WHERE user_id = $1 AND scope = $2`,
		userID, string(scope))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s settings: %w", scope, err)
	}
	defer rows.Close()

	out := domain.Settings{}
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan %s setting: %w", scope, err)
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode %s setting %q: %w", scope, key, err)
		}
		out[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s settings: %w", scope, err)
	}
	return out, nil
}

func (r *SettingsRepo) GetDashboards(ctx context.Context, userID string) ([]domain.Dashboard, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, position, layout FROM dashboards WHERE user_id = $1 ORDER BY position, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dashboards: %w", err)
	}
	defer rows.Close()

	dashboards := []domain.Dashboard{}
	for rows.Next() {
		var (
			d      domain.Dashboard
			layout []byte
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Position, &layout); err != nil {
			return nil, fmt.Errorf("failed to scan dashboard: %w", err)
		}
		if layout != nil {
			d.Layout = json.RawMessage(layout)
		}
		dashboards = append(dashboards, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dashboards: %w", err)
	}
	return dashboards, nil
}

// GetPageSettingsRaw tags each page value by how it was stored: JSON strings are
// serialized sections still to be decoded, objects are already structured.
func (r *SettingsRepo) GetPageSettingsRaw(ctx context.Context, userID string) (map[string]domain.StoredValue, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT key, value FROM user_settings WHERE user_id = $1 AND scope = 'page'`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query page settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]domain.StoredValue)
	for rows.Next() {
		var (
			key string
			raw []byte
		)
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan page setting: %w", err)
		}
		v, err := storedFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode page setting %q: %w", key, err)
		}
		out[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read page settings: %w", err)
	}
	return out, nil
}

func storedFromJSON(raw []byte) (domain.StoredValue, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return domain.Absent(), err
	}
	switch t := v.(type) {
	case nil:
		return domain.Absent(), nil
	case string:
		return domain.Raw(t), nil
	default:
		return domain.Decoded(t), nil
	}
}

func (r *SettingsRepo) PutSetting(ctx context.Context, userID string, scope domain.Scope, key string, value json.RawMessage) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_settings (user_id, scope, key, value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, scope, key) DO UPDATE SET
			value      = EXCLUDED.value,
			updated_at = now()`,
		userID, string(scope), key, []byte(value))
	if err != nil {
		return fmt.Errorf("failed to save %s setting %q: %w", scope, key, err)
	}
	return nil
}

// MarkerRepo is the durable store behind domain.MarkerStore.
type MarkerRepo struct {
	pool *pgxpool.Pool
}

func NewMarkerRepo(pool *pgxpool.Pool) *MarkerRepo {
	return &MarkerRepo{pool: pool}
}

func (r *MarkerRepo) Get(ctx context.Context, userID, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx,
		`SELECT value FROM user_markers WHERE user_id = $1 AND key = $2`,
		userID, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get marker %q: %w", key, err)
	}
	return value, true, nil
}

// GetAll returns every marker of the user, used to warm the cache.
func (r *MarkerRepo) GetAll(ctx context.Context, userID string) (map[string]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value FROM user_markers WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query markers: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("failed to scan marker: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read markers: %w", err)
	}
	return out, nil
}

func (r *MarkerRepo) Set(ctx context.Context, userID, key, value string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_markers (user_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, key) DO UPDATE SET
			value      = EXCLUDED.value,
			updated_at = now()`,
		userID, key, value)
	if err != nil {
		return fmt.Errorf("failed to set marker %q: %w", key, err)
	}
	return nil
}

func (r *MarkerRepo) Delete(ctx context.Context, userID, key string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM user_markers WHERE user_id = $1 AND key = $2`, userID, key); err != nil {
		return fmt.Errorf("failed to delete marker %q: %w", key, err)
	}
	return nil
}
