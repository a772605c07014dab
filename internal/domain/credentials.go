package domain

import (
	"context"
	"time"
)

// JiraCredentials is the OAuth token pair linked to a user.
type JiraCredentials struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	UpdatedAt    time.Time
}

// CredentialRepository returns ErrCredentialsNotFound for users without an integration.
type CredentialRepository interface {
	GetCredentials(ctx context.Context, userID string) (*JiraCredentials, error)
	SaveCredentials(ctx context.Context, creds JiraCredentials) error
	DeleteCredentials(ctx context.Context, userID string) error
}
