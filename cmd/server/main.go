package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/lokeshkumarbalu/jira-assistant/internal/adapter/httpserver"
	"github.com/lokeshkumarbalu/jira-assistant/internal/adapter/jira"
	"github.com/lokeshkumarbalu/jira-assistant/internal/adapter/metrics"
	"github.com/lokeshkumarbalu/jira-assistant/internal/adapter/postgres"
	"github.com/lokeshkumarbalu/jira-assistant/internal/adapter/redis"
	"github.com/lokeshkumarbalu/jira-assistant/internal/app"
	"github.com/lokeshkumarbalu/jira-assistant/internal/platform/config"
	"github.com/lokeshkumarbalu/jira-assistant/internal/platform/correlation"
	"github.com/lokeshkumarbalu/jira-assistant/internal/platform/crypto"
	"github.com/lokeshkumarbalu/jira-assistant/internal/platform/logging"
	"github.com/lokeshkumarbalu/jira-assistant/internal/platform/version"
)

const (
	startupTimeout        = 30 * time.Second
	shutdownTimeout       = 10 * time.Second
	cacheEvictionInterval = time.Minute
)

type metricsRegistry struct {
	http   *metrics.HTTPMetrics
	db     *metrics.DBMetrics
	redis  *metrics.RedisMetrics
	cache  *metrics.CacheMetrics
	auth   *metrics.AuthMetrics
	errors *metrics.ErrorMetrics
	route  http.Handler
}

func setupMetrics() *metricsRegistry {
	reg := metrics.NewRegistry()
	return &metricsRegistry{
		http:   metrics.NewHTTPMetrics(reg),
		db:     metrics.NewDBMetrics(reg),
		redis:  metrics.NewRedisMetrics(reg),
		cache:  metrics.NewCacheMetrics(reg),
		auth:   metrics.NewAuthMetrics(reg),
		errors: metrics.NewErrorMetrics(reg),
		route:  metrics.Handler(reg),
	}
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(ctx context.Context, cfg *config.Config, m *metricsRegistry, clock clockwork.Clock) (*pgxpool.Pool, error) {
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.WithTracer(postgres.NewQueryTracer(m.db, clock)))
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func setupRedis(ctx context.Context, cfg *config.Config, m *metricsRegistry, clock clockwork.Clock) (*goredis.Client, error) {
	breaker := redis.NewCircuitBreakerHook(redis.DefaultBreakerSettings(), m.redis)
	return redis.NewClient(ctx, cfg.RedisURL, redis.NewMetricsHook(m.redis, clock), breaker)
}

func runGracefulShutdown(srv *httpserver.Server, stop context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		stop()

		close(done)
	}()

	return done
}

func main() {
	os.Exit(run())
}

func run() int {
	clock := clockwork.NewRealClock()
	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", info.Version, "commit", info.Commit)

	m := setupMetrics()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelStartup()

	pool, err := setupDB(startupCtx, cfg, m, clock)
	if err != nil {
		slog.Error("Failed to set up database", "error", err)
		return 1
	}
	defer pool.Close()

	redisClient, err := setupRedis(startupCtx, cfg, m, clock)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		return 1
	}
	defer func() { _ = redisClient.Close() }()

	cipher, err := crypto.NewAESGCM(cfg.TokenEncryptionKey)
	if err != nil {
		slog.Error("Failed to create token cipher", "error", err)
		return 1
	}

	userRepo := postgres.NewUserRepo(pool)
	settingsRepo := postgres.NewSettingsRepo(pool)
	markerRepo := postgres.NewMarkerRepo(pool)
	credentialRepo := postgres.NewCredentialRepo(pool, cipher)

	settingsStore := redis.NewSettingsStore(redisClient, settingsRepo, markerRepo, cfg.SettingsCacheTTL, clock, m.cache)
	stopEviction := settingsStore.StartEvictionTimer(cacheEvictionInterval)
	defer stopEviction()

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	redis.NewSettingsInvalidationSubscriber(redisClient, settingsStore).Start(bgCtx)

	oauthCfg := jira.OAuthConfig{
		ClientID:     cfg.JiraClientID,
		ClientSecret: cfg.JiraClientSecret,
		RedirectURI:  cfg.JiraRedirectURI,
		AuthURL:      cfg.JiraAuthURL,
		TokenURL:     cfg.JiraTokenURL,
		Scopes:       cfg.Scopes(),
	}.OAuth2()
	bridge := jira.NewBridge(oauthCfg, credentialRepo, clock, cfg.IdentityTimeout)
	integrator := jira.NewIntegrator(oauthCfg, credentialRepo, &http.Client{
		Timeout:   cfg.IdentityTimeout,
		Transport: &correlation.Transport{},
	})

	deps := httpserver.Deps{
		Bootstrapper: app.NewSessionBootstrapper(userRepo, settingsStore, bridge, clock, m.auth),
		Settings:     app.NewSettingsService(settingsStore),
		Tracker:      app.NewTrackerService(settingsStore),
		Snapshots:    redis.NewSnapshotStore(redisClient, cfg.SessionMaxAge),
		Integrator:   integrator,
		Users:        userRepo,
		HealthChecks: []httpserver.HealthCheck{
			{Name: "postgres", Check: pool.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
		HTTPMetrics:   m.http.Middleware(),
		ErrorRecorder: m.errors.Record,
		MetricsRoute:  m.route,
	}

	srv := httpserver.NewServer(cfg, deps, clock)
	done := runGracefulShutdown(srv, stopBackground)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		return 1
	}

	<-done
	return 0
}
