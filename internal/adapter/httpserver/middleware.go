package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/lokeshkumarbalu/jira-assistant/internal/platform/correlation"
	apperrors "github.com/lokeshkumarbalu/jira-assistant/internal/platform/errors"
)

// correlationMiddleware reuses a well-formed inbound X-Correlation-ID and echoes it back.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromInbound(c.Request().Header.Get(correlation.Header))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.Header, id)
		return next(c)
	}
}

// requireUser rejects requests whose cookie session is not bound to a user.
func (s *Server) requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := boundUserID(s.cookieSession(c))
		if userID == "" {
			return apperrors.UnauthorizedError("no active session")
		}
		c.Set(contextKeyUserID, userID)
		return next(c)
	}
}
