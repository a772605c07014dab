package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lokeshkumarbalu/jira-assistant/internal/app"
	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
	apperrors "github.com/lokeshkumarbalu/jira-assistant/internal/platform/errors"
)

const maxSettingBodyBytes = 64 << 10

type trackerFieldRequest struct {
	Value string `json:"value"`
}

func (s *Server) registerSettingsRoutes(csrf echo.MiddlewareFunc) {
	g := s.echo.Group("/api/settings", csrf, s.requireUser)
	g.GET("/tracker", s.handleGetTracker)
	g.PUT("/tracker/:field", s.handlePutTracker)
	g.PUT("/:scope/:key", s.handlePutSetting)
}

func (s *Server) handlePutSetting(c echo.Context) error {
	userID := c.Get(contextKeyUserID).(string)
	scope := domain.Scope(c.Param("scope"))
	key := c.Param("key")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSettingBodyBytes+1))
	if err != nil {
		return apperrors.ValidationError("failed to read request body")
	}
	if len(body) > maxSettingBodyBytes {
		return apperrors.ValidationError("setting value too large").WithContext("key", key)
	}

	err = s.deps.Settings.Put(c.Request().Context(), userID, scope, key, json.RawMessage(body))
	if errors.Is(err, app.ErrInvalidSetting) {
		return apperrors.ValidationError(err.Error()).
			WithContext("scope", string(scope)).
			WithContext("key", key)
	}
	if err != nil {
		return apperrors.InternalError("failed to save setting", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetTracker(c echo.Context) error {
	userID := c.Get(contextKeyUserID).(string)

	settings, err := s.deps.Tracker.Load(c.Request().Context(), userID)
	if err != nil {
		return apperrors.InternalError("failed to load tracker settings", err)
	}
	return c.JSON(http.StatusOK, settings)
}

func (s *Server) handlePutTracker(c echo.Context) error {
	userID := c.Get(contextKeyUserID).(string)
	key := c.Param("field")

	var req trackerFieldRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	err := s.deps.Tracker.Save(c.Request().Context(), userID, key, req.Value)
	if errors.Is(err, app.ErrInvalidSetting) {
		return apperrors.ValidationError(err.Error()).WithContext("key", key)
	}
	if err != nil {
		return apperrors.InternalError("failed to save tracker setting", err)
	}
	return c.NoContent(http.StatusNoContent)
}
