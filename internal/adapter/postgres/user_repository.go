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

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var (
		p       domain.UserProfile
		profile []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, jira_url, api_url, profile FROM users WHERE user_id = $1`,
		userID,
	).Scan(&p.UserID, &p.JiraURL, &p.APIURL, &profile)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	if err := json.Unmarshal(profile, &p.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode profile of user %s: %w", userID, err)
	}
	return &p, nil
}

// Upsert creates the user or updates its URLs. Profile fields are merged into
// the stored object rather than replacing it.
func (r *UserRepo) Upsert(ctx context.Context, p domain.UserProfile) error {
	fields := p.Fields
	if fields == nil {
		fields = domain.Settings{}
	}
	profile, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (user_id, jira_url, api_url, profile)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			jira_url   = EXCLUDED.jira_url,
			api_url    = EXCLUDED.api_url,
			profile    = users.profile || EXCLUDED.profile,
			updated_at = now()`,
		p.UserID, p.JiraURL, p.APIURL, profile)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}
