package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lokeshkumarbalu/jira-assistant/internal/app"
	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
	apperrors "github.com/lokeshkumarbalu/jira-assistant/internal/platform/errors"
)

const authenticateTimeout = 30 * time.Second

type authenticateRequest struct {
	UserID string `json:"user_id"`
}

type authenticateResponse struct {
	Authenticated   bool            `json:"authenticated"`
	NeedIntegration bool            `json:"need_integration"`
	Failure         string          `json:"failure,omitempty"`
	Session         app.SessionView `json:"session"`
}

type authOutcome struct {
	authenticated bool
	view          app.SessionView
	err           error
}

func (s *Server) registerSessionRoutes(csrf, rateLimiter echo.MiddlewareFunc) {
	s.echo.POST("/api/session/authenticate", s.handleAuthenticate, rateLimiter)
	s.echo.GET("/api/session", s.handleGetSession, csrf)
}

func (s *Server) handleAuthenticate(c echo.Context) error {
	var req authenticateRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	cookie := s.cookieSession(c)
	key, isNew := sessionKey(cookie)
	if isNew {
		if err := cookie.Save(c.Request(), c.Response()); err != nil {
			return apperrors.InternalError("failed to save session", err)
		}
	}
	bound := boundUserID(cookie)

	ctx := c.Request().Context()
	// Concurrent calls for the same browser session and user share one bootstrap pass.
	v, _, _ := s.authFlight.Do(key+"\x00"+req.UserID, func() (any, error) {
		return s.authenticate(ctx, key, bound, req.UserID), nil
	})
	out := v.(authOutcome)

	if userID := out.view.UserID; userID != "" {
		c.Set(contextKeyUserID, userID)
	}

	if out.err != nil {
		if domain.IsKind(out.err, domain.KindDataCorruption) {
			return apperrors.InternalError("stored settings are corrupt", out.err).
				WithContext("session_id", out.view.ID)
		}
		return apperrors.ExternalError("session enrichment failed", out.err).
			WithContext("session_id", out.view.ID)
	}

	return c.JSON(http.StatusOK, authenticateResponse{
		Authenticated:   out.authenticated,
		NeedIntegration: out.view.NeedIntegration,
		Failure:         out.view.Failure,
		Session:         out.view,
	})
}

// authenticate runs one bootstrap pass detached from the caller, so a client
// disconnect does not abort the pass other waiters depend on.
func (s *Server) authenticate(ctx context.Context, key, bound, userID string) authOutcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), authenticateTimeout)
	defer cancel()

	sess := app.NewSession(cookieResolver{userID: bound})
	ok, err := s.deps.Bootstrapper.Authenticate(ctx, sess, userID)
	view := sess.Snapshot()

	if serr := s.deps.Snapshots.Save(ctx, key, view); serr != nil {
		slog.WarnContext(ctx, "Failed to store session snapshot", "session_key", key, "error", serr)
	}
	return authOutcome{authenticated: ok, view: view, err: err}
}

func (s *Server) handleGetSession(c echo.Context) error {
	cookie := s.cookieSession(c)
	key, ok := cookie.Values[sessionKeyID].(string)
	if !ok || key == "" {
		return apperrors.NotFoundError("no session")
	}

	raw, err := s.deps.Snapshots.Load(c.Request().Context(), key)
	if errors.Is(err, domain.ErrNoActiveSession) {
		return apperrors.NotFoundError("no session")
	}
	if err != nil {
		return apperrors.InternalError("failed to load session", fmt.Errorf("load snapshot: %w", err))
	}

	if userID := boundUserID(cookie); userID != "" {
		c.Set(contextKeyUserID, userID)
	}
	return c.JSONBlob(http.StatusOK, raw)
}
