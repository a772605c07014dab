package httpserver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
	apperrors "github.com/lokeshkumarbalu/jira-assistant/internal/platform/errors"
)

const oauthTimeout = 10 * time.Second

func (s *Server) registerAuthRoutes(csrf, rateLimiter echo.MiddlewareFunc) {
	s.echo.GET("/auth/jira/login", s.handleJiraLogin, rateLimiter)
	s.echo.GET("/auth/jira/callback", s.handleJiraCallback, rateLimiter)
	s.echo.POST("/auth/logout", s.handleLogout, rateLimiter, csrf)
	s.echo.DELETE("/auth/jira", s.handleJiraUnlink, rateLimiter, csrf, s.requireUser)
}

func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate OAuth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func parseSiteURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid site URL %q", raw)
	}
	return u.String(), nil
}

// handleJiraLogin registers the user's Jira site and starts the OAuth dance.
// Known users may omit jira_url to re-link their existing site.
func (s *Server) handleJiraLogin(c echo.Context) error {
	ctx := c.Request().Context()
	cookie := s.cookieSession(c)

	userID := c.QueryParam("user_id")
	if userID == "" {
		userID = boundUserID(cookie)
	}

	jiraURL := c.QueryParam("jira_url")
	switch {
	case jiraURL != "":
		site, err := parseSiteURL(jiraURL)
		if err != nil {
			return apperrors.ValidationError("jira_url must be an http(s) URL").WithContext("jira_url", jiraURL)
		}
		apiURL := c.QueryParam("api_url")
		if apiURL != "" {
			if apiURL, err = parseSiteURL(apiURL); err != nil {
				return apperrors.ValidationError("api_url must be an http(s) URL").WithContext("api_url", c.QueryParam("api_url"))
			}
		}
		if userID == "" {
			userID = uuid.NewString()
		}
		if err := s.deps.Users.Upsert(ctx, domain.UserProfile{UserID: userID, JiraURL: site, APIURL: apiURL}); err != nil {
			return apperrors.InternalError("failed to save user", err).WithContext("user_id", userID)
		}
	case userID == "":
		return apperrors.ValidationError("jira_url is required")
	default:
		_, err := s.deps.Users.GetProfile(ctx, userID)
		if errors.Is(err, domain.ErrUserNotFound) {
			return apperrors.ValidationError("jira_url is required for unknown users").WithContext("user_id", userID)
		}
		if err != nil {
			return apperrors.InternalError("failed to load user", err)
		}
	}

	state, err := generateOAuthState()
	if err != nil {
		return apperrors.InternalError("failed to generate OAuth state", err)
	}

	cookie.Values[sessionKeyOAuthState] = state
	cookie.Values[sessionKeyPendingUser] = userID
	if err := cookie.Save(c.Request(), c.Response()); err != nil {
		return apperrors.InternalError("failed to save OAuth state session", err)
	}

	if err := c.Redirect(http.StatusFound, s.deps.Integrator.AuthCodeURL(state)); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) handleJiraCallback(c echo.Context) error {
	if providerErr := c.QueryParam("error"); providerErr != "" {
		return apperrors.ValidationError("authorization was not granted").
			WithContext("provider_error", providerErr)
	}

	code := c.QueryParam("code")
	if code == "" {
		return apperrors.ValidationError("missing code parameter")
	}

	cookie := s.cookieSession(c)
	expectedState, ok := cookie.Values[sessionKeyOAuthState].(string)
	if !ok || expectedState == "" {
		return apperrors.ValidationError("missing OAuth state")
	}
	if c.QueryParam("state") != expectedState {
		return apperrors.ValidationError("invalid OAuth state")
	}
	userID, _ := cookie.Values[sessionKeyPendingUser].(string)
	if userID == "" {
		return apperrors.ValidationError("missing pending user")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), oauthTimeout)
	defer cancel()

	if err := s.deps.Integrator.Link(ctx, userID, code); err != nil {
		return apperrors.ExternalError("failed to link Jira account", err).WithContext("user_id", userID)
	}

	// The pre-login snapshot belongs to an anonymous session; drop it with the old id.
	if oldKey, ok := cookie.Values[sessionKeyID].(string); ok && oldKey != "" {
		if err := s.deps.Snapshots.Delete(ctx, oldKey); err != nil {
			slog.WarnContext(ctx, "Failed to delete pre-login snapshot", "error", err)
		}
	}
	regenerate(cookie, userID)
	if err := cookie.Save(c.Request(), c.Response()); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	c.Set(contextKeyUserID, userID)
	slog.InfoContext(ctx, "Jira account linked", "user_id", userID)

	if err := c.Redirect(http.StatusFound, "/"); err != nil {
		return fmt.Errorf("failed to redirect: %w", err)
	}
	return nil
}

func (s *Server) handleLogout(c echo.Context) error {
	ctx := c.Request().Context()
	cookie := s.cookieSession(c)
	userID := boundUserID(cookie)

	if key, ok := cookie.Values[sessionKeyID].(string); ok && key != "" {
		if err := s.deps.Snapshots.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "Failed to delete session snapshot", "error", err)
		}
	}

	cookie.Options.MaxAge = -1
	if err := cookie.Save(c.Request(), c.Response()); err != nil {
		return apperrors.InternalError("failed to save logout session", err)
	}

	slog.InfoContext(ctx, "User logged out", "user_id", userID)
	return c.NoContent(http.StatusNoContent)
}

// handleJiraUnlink forgets the user's Jira tokens. The cookie stays bound, so the
// next authenticate reports need_integration.
func (s *Server) handleJiraUnlink(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Get(contextKeyUserID).(string)

	if err := s.deps.Integrator.Unlink(ctx, userID); err != nil {
		return apperrors.InternalError("failed to unlink Jira", err)
	}

	if key, ok := s.cookieSession(c).Values[sessionKeyID].(string); ok && key != "" {
		if err := s.deps.Snapshots.Delete(ctx, key); err != nil {
			slog.WarnContext(ctx, "Failed to delete session snapshot", "error", err)
		}
	}

	slog.InfoContext(ctx, "Jira integration removed", "user_id", userID)
	return c.NoContent(http.StatusNoContent)
}
