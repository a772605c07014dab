package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
	"github.com/lokeshkumarbalu/jira-assistant/internal/platform/crypto"
)

type CredentialRepo struct {
	pool   *pgxpool.Pool
	cipher crypto.Cipher
}

func NewCredentialRepo(pool *pgxpool.Pool, cipher crypto.Cipher) *CredentialRepo {
	return &CredentialRepo{pool: pool, cipher: cipher}
}

func (r *CredentialRepo) GetCredentials(ctx context.Context, userID string) (*domain.JiraCredentials, error) {
	var (
		c                           domain.JiraCredentials
		sealedAccess, sealedRefresh string
		expiry                      *time.Time
	)
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, access_token, refresh_token, token_type, expiry, updated_at
		FROM jira_credentials WHERE user_id = $1`,
		userID,
	).Scan(&c.UserID, &sealedAccess, &sealedRefresh, &c.TokenType, &expiry, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCredentialsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get jira credentials: %w", err)
	}

	if c.AccessToken, err = r.cipher.Open(sealedAccess, userID); err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	if c.RefreshToken, err = r.cipher.Open(sealedRefresh, userID); err != nil {
		return nil, fmt.Errorf("failed to decrypt refresh token: %w", err)
	}
	if expiry != nil {
		c.Expiry = *expiry
	}
	return &c, nil
}

func (r *CredentialRepo) SaveCredentials(ctx context.Context, c domain.JiraCredentials) error {
	sealedAccess, err := r.cipher.Seal(c.AccessToken, c.UserID)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}
	sealedRefresh, err := r.cipher.Seal(c.RefreshToken, c.UserID)
	if err != nil {
		return fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	var expiry *time.Time
	if !c.Expiry.IsZero() {
		expiry = &c.Expiry
	}
	tokenType := c.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO jira_credentials (user_id, access_token, refresh_token, token_type, expiry)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token  = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_type    = EXCLUDED.token_type,
			expiry        = EXCLUDED.expiry,
			updated_at    = now()`,
		c.UserID, sealedAccess, sealedRefresh, tokenType, expiry)
	if err != nil {
		return fmt.Errorf("failed to save jira credentials: %w", err)
	}
	return nil
}

func (r *CredentialRepo) DeleteCredentials(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM jira_credentials WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete jira credentials: %w", err)
	}
	return nil
}
