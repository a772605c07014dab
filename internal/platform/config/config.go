package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv             string `env:"APP_ENV" default:"development"`
	Port               string `env:"PORT" default:"8080"`
	DatabaseURL        string `env:"DATABASE_URL"`
	RedisURL           string `env:"REDIS_URL"`
	SessionSecret      string `env:"SESSION_SECRET"`
	TokenEncryptionKey string `env:"TOKEN_ENCRYPTION_KEY"`
	LogLevel           string `env:"LOG_LEVEL" default:"info"`
	LogFormat          string `env:"LOG_FORMAT" default:"text"`

	JiraClientID     string `env:"JIRA_CLIENT_ID"`
	JiraClientSecret string `env:"JIRA_CLIENT_SECRET"`
	JiraRedirectURI  string `env:"JIRA_REDIRECT_URI"`
	JiraAuthURL      string `env:"JIRA_AUTH_URL" default:"https://auth.atlassian.com/authorize"`
	JiraTokenURL     string `env:"JIRA_TOKEN_URL" default:"https://auth.atlassian.com/oauth/token"`
	JiraScopes       string `env:"JIRA_SCOPES" default:"read:jira-user read:jira-work write:jira-work offline_access"`

	SessionMaxAge    time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days
	SettingsCacheTTL time.Duration `env:"SETTINGS_CACHE_TTL" default:"10s"`
	IdentityTimeout  time.Duration `env:"IDENTITY_TIMEOUT" default:"10s"`

	AuthRatePerSecond float64 `env:"AUTH_RATE_PER_SECOND" default:"2"`
	AuthBurst         int     `env:"AUTH_BURST" default:"5"`
}

// Scopes splits JiraScopes on whitespace.
func (c *Config) Scopes() []string {
	return strings.Fields(c.JiraScopes)
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := []struct {
		name  string
		value string
	}{
		{"DATABASE_URL", cfg.DatabaseURL},
		{"REDIS_URL", cfg.RedisURL},
		{"SESSION_SECRET", cfg.SessionSecret},
		{"JIRA_CLIENT_ID", cfg.JiraClientID},
		{"JIRA_CLIENT_SECRET", cfg.JiraClientSecret},
		{"JIRA_REDIRECT_URI", cfg.JiraRedirectURI},
		{"TOKEN_ENCRYPTION_KEY", cfg.TokenEncryptionKey},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("%s is required", r.name)
		}
	}

	keyBytes, err := hex.DecodeString(cfg.TokenEncryptionKey)
	if err != nil {
		return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be valid hex: %w", err)
	}
	if len(keyBytes) != 32 {
		return fmt.Errorf("TOKEN_ENCRYPTION_KEY must be exactly 64 hex characters (32 bytes), got %d bytes", len(keyBytes))
	}

	if cfg.AppEnv == "production" {
		if err := validateSSLMode(cfg.DatabaseURL); err != nil {
			return err
		}
	}

	if cfg.AuthRatePerSecond <= 0 || cfg.AuthBurst <= 0 {
		return fmt.Errorf("AUTH_RATE_PER_SECOND and AUTH_BURST must be positive")
	}

	return nil
}

func validateSSLMode(databaseURL string) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("DATABASE_URL is not a valid URL: %w", err)
	}
	mode := strings.ToLower(u.Query().Get("sslmode"))
	if mode == "disable" || mode == "allow" {
		return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
	}
	return nil
}
