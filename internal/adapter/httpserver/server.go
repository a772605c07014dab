package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/singleflight"

	"github.com/lokeshkumarbalu/jira-assistant/internal/app"
	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
	"github.com/lokeshkumarbalu/jira-assistant/internal/platform/config"
	apperrors "github.com/lokeshkumarbalu/jira-assistant/internal/platform/errors"
)

type Bootstrapper interface {
	Authenticate(ctx context.Context, sess *app.Session, userID string) (bool, error)
}

type SettingsService interface {
	Put(ctx context.Context, userID string, scope domain.Scope, key string, value json.RawMessage) error
}

type TrackerService interface {
	Load(ctx context.Context, userID string) (domain.TrackerSettings, error)
	Save(ctx context.Context, userID, key, value string) error
}

// SnapshotStore keeps the last SessionView per browser session.
type SnapshotStore interface {
	Save(ctx context.Context, sessionKey string, snapshot any) error
	Load(ctx context.Context, sessionKey string) (json.RawMessage, error)
	Delete(ctx context.Context, sessionKey string) error
}

type Integrator interface {
	AuthCodeURL(state string) string
	Link(ctx context.Context, userID, code string) error
	Unlink(ctx context.Context, userID string) error
}

type Deps struct {
	Bootstrapper Bootstrapper
	Settings     SettingsService
	Tracker      TrackerService
	Snapshots    SnapshotStore
	Integrator   Integrator
	Users        domain.UserRepository
	HealthChecks []HealthCheck

	// Optional observability hooks.
	HTTPMetrics   echo.MiddlewareFunc
	ErrorRecorder apperrors.Recorder
	MetricsRoute  http.Handler
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	deps   Deps
	clock  clockwork.Clock

	sessionStore *sessions.CookieStore
	authFlight   singleflight.Group
	startTime    time.Time
}

func NewServer(cfg *config.Config, deps Deps, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		deps:         deps,
		clock:        clock,
		sessionStore: setupSessionStore(cfg),
		startTime:    clock.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP exposes the router for tests and embedding.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.AppEnv == "production",
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
