package httpserver

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
)

// Cookie session keys
const (
	sessionName           = "jira-assistant-session"
	sessionKeyID          = "sid"
	sessionKeyUserID      = "user_id"
	sessionKeyOAuthState  = "oauth_state"
	sessionKeyPendingUser = "pending_user"
	contextKeyUserID      = "userID"
)

// cookieResolver answers with the user bound to the browser session by the
// integration callback.
type cookieResolver struct {
	userID string
}

func (r cookieResolver) CurrentSessionUserID(context.Context) (string, error) {
	if r.userID == "" {
		return "", domain.ErrNoActiveSession
	}
	return r.userID, nil
}

// cookieSession returns the browser session; an undecodable cookie yields a fresh one.
func (s *Server) cookieSession(c echo.Context) *sessions.Session {
	sess, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		slog.WarnContext(c.Request().Context(), "Discarding undecodable session cookie", "error", err)
	}
	return sess
}

func boundUserID(sess *sessions.Session) string {
	id, _ := sess.Values[sessionKeyUserID].(string)
	return id
}

// sessionKey returns the snapshot key of the browser session, assigning one
// when missing. The second result reports whether the cookie must be saved.
func sessionKey(sess *sessions.Session) (string, bool) {
	if id, ok := sess.Values[sessionKeyID].(string); ok && id != "" {
		return id, false
	}
	id := uuid.NewString()
	sess.Values[sessionKeyID] = id
	return id, true
}

// regenerate drops every value and issues a new snapshot key, so a session
// fixated before login cannot be reused afterwards.
func regenerate(sess *sessions.Session, userID string) string {
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	id := uuid.NewString()
	sess.Values[sessionKeyID] = id
	sess.Values[sessionKeyUserID] = userID
	return id
}
