package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

var configKeys = []string{
	"PORT", "BASE_URL", "RATE_LIMIT", "REQUEST_TIMEOUT", "SHUTDOWN_TIMEOUT",
	"DATABASE_URL", "REDIS_URL", "CACHE_TTL", "GEOIP_DB_PATH",
	"REDIRECT_PRESERVE_METHOD", "STATS_WINDOW_DAYS", "UPSTREAM_URL",
	"APP_ENV", "LOG_LEVEL", "MILESTONE_WEBHOOK_URL",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, 100, cfg.Server.RateLimit)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "data/linkboard.db", cfg.Storage.DatabaseURL)
	assert.False(t, cfg.Storage.InMemory())
	assert.Empty(t, cfg.Storage.RedisURL)
	assert.False(t, cfg.Redirect.PreserveMethod)
	assert.Equal(t, 7, cfg.Redirect.StatsWindowDays)
	assert.False(t, cfg.Redirect.ProbeMode())
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.App.LogLevel)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	envVars := map[string]string{
		"PORT":                     "9090",
		"BASE_URL":                 "https://lnk.example.com/",
		"RATE_LIMIT":               "30",
		"REQUEST_TIMEOUT":          "3s",
		"DATABASE_URL":             "memory",
		"REDIS_URL":                "redis://localhost:6379/0",
		"CACHE_TTL":                "5m",
		"REDIRECT_PRESERVE_METHOD": "true",
		"STATS_WINDOW_DAYS":        "30",
		"UPSTREAM_URL":             "https://api.example.com/r",
		"APP_ENV":                  "production",
		"LOG_LEVEL":                "debug",
		"MILESTONE_WEBHOOK_URL":    "https://hooks.example.com/milestones",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "https://lnk.example.com", cfg.Server.BaseURL)
	assert.Equal(t, 30, cfg.Server.RateLimit)
	assert.Equal(t, 3*time.Second, cfg.Server.RequestTimeout)
	assert.True(t, cfg.Storage.InMemory())
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.RedisURL)
	assert.Equal(t, 5*time.Minute, cfg.Storage.CacheTTL)
	assert.True(t, cfg.Redirect.PreserveMethod)
	assert.Equal(t, 30, cfg.Redirect.StatsWindowDays)
	assert.True(t, cfg.Redirect.ProbeMode())
	assert.Equal(t, "production", cfg.App.Environment)
	assert.Equal(t, "https://hooks.example.com/milestones", cfg.App.MilestoneWebhookURL)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"non numeric rate limit", "RATE_LIMIT", "lots"},
		{"zero rate limit", "RATE_LIMIT", "0"},
		{"relative base url", "BASE_URL", "/links"},
		{"bad redis scheme", "REDIS_URL", "http://localhost:6379"},
		{"window too small", "STATS_WINDOW_DAYS", "0"},
		{"window too large", "STATS_WINDOW_DAYS", "365"},
		{"bad upstream", "UPSTREAM_URL", "ftp://example.com"},
		{"unknown environment", "APP_ENV", "qa"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
		{"relative milestone webhook", "MILESTONE_WEBHOOK_URL", "/hooks/milestones"},
		{"bad duration", "SHUTDOWN_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			assert.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("LINKBOARD_TEST_KEY=from-file\nLINKBOARD_TEST_SET=from-file\n"), 0o600))
	t.Setenv("LINKBOARD_TEST_SET", "from-env")
	t.Cleanup(func() { os.Unsetenv("LINKBOARD_TEST_KEY") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))

	assert.Equal(t, "from-file", os.Getenv("LINKBOARD_TEST_KEY"))
	assert.Equal(t, "from-env", os.Getenv("LINKBOARD_TEST_SET"))
}

func TestAppConfig_NewLogger(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		t.Run(env, func(t *testing.T) {
			app := AppConfig{Environment: env, LogLevel: "warn"}

			logger, err := app.NewLogger()

			require.NoError(t, err)
			assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
			assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))
		})
	}
}
