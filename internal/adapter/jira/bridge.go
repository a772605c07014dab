package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/oauth2"

	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
	"github.com/lokeshkumarbalu/jira-assistant/internal/platform/correlation"
	"github.com/lokeshkumarbalu/jira-assistant/internal/platform/retry"
)

const (
	myselfPath = "/rest/api/2/myself"

	retryInitialBackoff   = 500 * time.Millisecond
	retryRateLimitBackoff = 5 * time.Second
	retryMaxBackoff       = 10 * time.Second
	maxErrorBody          = 512
)

// Bridge looks up the current Jira user with the stored OAuth credentials of
// the requesting user. Expired access tokens are refreshed and persisted.
type Bridge struct {
	oauth      *oauth2.Config
	creds      domain.CredentialRepository
	httpClient *http.Client
	policy     retry.Policy
}

var _ domain.IdentityBridge = (*Bridge)(nil)

type Option func(*Bridge)

// WithHTTPClient replaces the client used for both API calls and token refreshes.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bridge) { b.httpClient = c }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(b *Bridge) { b.policy = p }
}

func NewBridge(oauth *oauth2.Config, creds domain.CredentialRepository, clock clockwork.Clock, timeout time.Duration, opts ...Option) *Bridge {
	b := &Bridge{
		oauth:      oauth,
		creds:      creds,
		httpClient: &http.Client{Timeout: timeout, Transport: &correlation.Transport{}},
		policy: retry.Policy{
			MaxAttempts:      3,
			InitialBackoff:   retryInitialBackoff,
			RateLimitBackoff: retryRateLimitBackoff,
			MaxBackoff:       retryMaxBackoff,
			Clock:            clock,
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Bridge) GetCurrentIdentity(ctx context.Context, req domain.IdentityRequest) (*domain.ExternalIdentity, error) {
	base := req.APIRootURL
	if base == "" {
		base = req.RootURL
	}
	if base == "" {
		return nil, fmt.Errorf("no jira url configured for user %s", req.UserID)
	}

	token, err := b.token(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	endpoint := strings.TrimRight(base, "/") + myselfPath

	p := b.policy
	p.OnRetry = func(attempt int, retryErr error, backoff time.Duration) {
		slog.WarnContext(ctx, "Jira identity lookup failed, retrying", "user_id", req.UserID, "attempt", attempt, "backoff_seconds", backoff.Seconds(), "error", retryErr)
	}

	identity, err := retry.Do(ctx, p, classifyAPIError, func() (*domain.ExternalIdentity, error) {
		return b.fetchMyself(ctx, endpoint, token)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch jira identity: %w", err)
	}
	return identity, nil
}

// token returns a valid access token, refreshing and persisting it when expired.
func (b *Bridge) token(ctx context.Context, userID string) (*oauth2.Token, error) {
	creds, err := b.creds.GetCredentials(ctx, userID)
	if errors.Is(err, domain.ErrCredentialsNotFound) {
		return nil, &IntegrationRequiredError{UserID: userID, Err: err}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load jira credentials: %w", err)
	}

	current := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    creds.TokenType,
		Expiry:       creds.Expiry,
	}

	fresh, err := b.oauth.TokenSource(b.clientContext(ctx), current).Token()
	if err != nil {
		if refreshRejected(err) {
			return nil, unauthorized(err)
		}
		return nil, fmt.Errorf("failed to refresh jira token: %w", err)
	}

	if fresh.AccessToken != current.AccessToken {
		rotated := domain.JiraCredentials{
			UserID:       userID,
			AccessToken:  fresh.AccessToken,
			RefreshToken: fresh.RefreshToken,
			TokenType:    fresh.TokenType,
			Expiry:       fresh.Expiry,
		}
		if rotated.RefreshToken == "" {
			rotated.RefreshToken = current.RefreshToken
		}
		if err := b.creds.SaveCredentials(ctx, rotated); err != nil {
			slog.WarnContext(ctx, "Failed to persist refreshed jira token", "user_id", userID, "error", err)
		} else {
			slog.InfoContext(ctx, "Jira token refreshed", "user_id", userID)
		}
	}
	return fresh, nil
}

func (b *Bridge) fetchMyself(ctx context.Context, endpoint string, token *oauth2.Token) (*domain.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity request: %w", err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute identity request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			Wait:       parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read identity response: %w", err)
	}
	return decodeIdentity(body)
}

func decodeIdentity(body []byte) (*domain.ExternalIdentity, error) {
	var identity domain.ExternalIdentity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}
	if err := json.Unmarshal(body, &identity.Raw); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}
	return &identity, nil
}

func (b *Bridge) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
}

// refreshRejected reports whether the authorization server refused the refresh
// token itself (invalid_grant and friends), as opposed to failing to answer.
func refreshRejected(err error) bool {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return false
	}
	if re.ErrorCode == "invalid_grant" {
		return true
	}
	if re.Response == nil {
		return false
	}
	switch re.Response.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	default:
		return false
	}
}

func classifyAPIError(err error) retry.Action {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return retry.Retry
	}

	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return retry.After
	case apiErr.StatusCode >= 500:
		return retry.Retry
	default:
		return retry.Stop
	}
}
