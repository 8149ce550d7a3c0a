// Package config loads linkboard settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"linkboard/internal/analytics"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Redirect RedirectConfig
	App      AppConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	BaseURL         string        `envconfig:"BASE_URL" default:"http://localhost:8080"`
	RateLimit       int           `envconfig:"RATE_LIMIT" default:"100"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if err := validateHTTPURL(c.BaseURL); err != nil {
		return fmt.Errorf("base URL: %w", err)
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rate limit must be positive, got %d", c.RateLimit)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

// StorageConfig selects the link store and its optional cache.
// DatabaseURL is a sqlite file path, a postgres:// or libsql:// URL, or
// "memory" for a non-persistent in-process store.
type StorageConfig struct {
	DatabaseURL string        `envconfig:"DATABASE_URL" default:"data/linkboard.db"`
	RedisURL    string        `envconfig:"REDIS_URL"`
	CacheTTL    time.Duration `envconfig:"CACHE_TTL" default:"1h"`
	GeoIPDBPath string        `envconfig:"GEOIP_DB_PATH"`
}

const MemoryDatabase = "memory"

// InMemory reports whether links live only in process memory.
func (c *StorageConfig) InMemory() bool {
	return c.DatabaseURL == MemoryDatabase
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("database URL cannot be empty")
	}
	if c.RedisURL != "" {
		u, err := url.Parse(c.RedisURL)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return fmt.Errorf("redis URL must use the redis:// or rediss:// scheme")
		}
		if c.CacheTTL <= 0 {
			return fmt.Errorf("cache TTL must be positive")
		}
	}
	return nil
}

// RedirectConfig controls how short codes are served.
type RedirectConfig struct {
	PreserveMethod  bool   `envconfig:"REDIRECT_PRESERVE_METHOD" default:"false"`
	StatsWindowDays int    `envconfig:"STATS_WINDOW_DAYS" default:"7"`
	UpstreamURL     string `envconfig:"UPSTREAM_URL"`
}

// ProbeMode reports whether redirects are answered by probing UpstreamURL.
func (c *RedirectConfig) ProbeMode() bool {
	return c.UpstreamURL != ""
}

// Validate validates the redirect configuration.
func (c *RedirectConfig) Validate() error {
	if err := analytics.ValidateWindow(c.StatsWindowDays); err != nil {
		return fmt.Errorf("stats window: %w", err)
	}
	if c.UpstreamURL != "" {
		if err := validateHTTPURL(c.UpstreamURL); err != nil {
			return fmt.Errorf("upstream URL: %w", err)
		}
	}
	return nil
}

// AppConfig holds application-specific configuration.
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"` // development, staging, production, test
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`      // debug, info, warn, error

	// MilestoneWebhookURL receives a POST for every click milestone. Empty disables it.
	MilestoneWebhookURL string `envconfig:"MILESTONE_WEBHOOK_URL"`
}

// Validate validates the app configuration.
func (c *AppConfig) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, staging, production, test)", c.Environment)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.MilestoneWebhookURL != "" {
		if err := validateHTTPURL(c.MilestoneWebhookURL); err != nil {
			return fmt.Errorf("milestone webhook URL: %w", err)
		}
	}
	return nil
}

// NewLogger builds a JSON production logger for APP_ENV=production and a
// console development logger otherwise.
func (c *AppConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}

	zc := zap.NewDevelopmentConfig()
	if c.Environment == "production" {
		zc = zap.NewProductionConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load loads configuration from environment variables only.
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name   string
		target any
		check  func() error
	}{
		{"Server", &cfg.Server, cfg.Server.Validate},
		{"Storage", &cfg.Storage, cfg.Storage.Validate},
		{"Redirect", &cfg.Redirect, cfg.Redirect.Validate},
		{"App", &cfg.App, cfg.App.Validate},
	}
	for _, s := range sections {
		if err := envconfig.Process("", s.target); err != nil {
			return nil, fmt.Errorf("failed to load %s config: %w", s.name, err)
		}
		if err := s.check(); err != nil {
			return nil, fmt.Errorf("invalid %s config: %w", s.name, err)
		}
	}

	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")
	return cfg, nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	return nil
}
