package jira

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
)

// Atlassian 3LO requires the audience parameter and consent prompt on the authorize URL.
const audience = "api.atlassian.com"

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	Scopes       []string
}

func (c OAuthConfig) OAuth2() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Integrator runs the authorization code flow that links a user to Jira.
type Integrator struct {
	oauth      *oauth2.Config
	creds      domain.CredentialRepository
	httpClient *http.Client
}

func NewIntegrator(oauth *oauth2.Config, creds domain.CredentialRepository, httpClient *http.Client) *Integrator {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Integrator{oauth: oauth, creds: creds, httpClient: httpClient}
}

func (i *Integrator) AuthCodeURL(state string) string {
	return i.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("audience", audience),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Link exchanges the authorization code and stores the token pair for userID.
func (i *Integrator) Link(ctx context.Context, userID, code string) error {
	tok, err := i.oauth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, i.httpClient), code)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	err = i.creds.SaveCredentials(ctx, domain.JiraCredentials{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
	})
	if err != nil {
		return fmt.Errorf("failed to store jira credentials: %w", err)
	}

	slog.InfoContext(ctx, "Jira account linked", "user_id", userID)
	return nil
}

// Unlink removes the stored credentials; the next bootstrap reports NeedIntegration.
func (i *Integrator) Unlink(ctx context.Context, userID string) error {
	return i.creds.DeleteCredentials(ctx, userID)
}
