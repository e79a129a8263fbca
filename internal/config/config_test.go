package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvEnv, "")
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kokocli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "https://kokossimo.ru/api", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Timeout())
	assert.Equal(t, 0.35, cfg.Search.Threshold)
	assert.Equal(t, 200*time.Millisecond, cfg.DebounceDelay())
	assert.Equal(t, 5, cfg.Search.SuggestLimit)
	assert.Equal(t, 64, cfg.Cache.Size)
	assert.Equal(t, time.Minute, cfg.CacheTTL())
	assert.Equal(t, "local", cfg.Logging.Env)
	assert.Equal(t, "warn", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileWithEnvExpansion(t *testing.T) {
	clearEnv(t)
	t.Setenv("KOKO_TEST_HOST", "staging.kokossimo.ru")

	path := writeConfig(t, `
api:
  base_url: https://${KOKO_TEST_HOST}/api
  timeout_sec: 5
  rate_per_sec: -1
search:
  threshold: 0.5
  debounce_ms: ${KOKO_TEST_DEBOUNCE:-300}
cache:
  size: 8
logging:
  env: prod
  level: info
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://staging.kokossimo.ru/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, -1.0, cfg.API.RatePerSec)
	assert.Equal(t, 0.5, cfg.Search.Threshold)
	assert.Equal(t, 300*time.Millisecond, cfg.DebounceDelay())
	assert.Equal(t, 8, cfg.Cache.Size)
	assert.Equal(t, 60, cfg.Cache.TTLSec)
	assert.Equal(t, "prod", cfg.Logging.Env)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAPIURL, "http://localhost:8000/api")
	t.Setenv(EnvLogLevel, "debug")

	path := writeConfig(t, "api:\n  base_url: https://kokossimo.ru/api\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "api: [unclosed"))
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"relative url", func(c *Config) { c.API.BaseURL = "/api" }, "api.base_url"},
		{"ftp url", func(c *Config) { c.API.BaseURL = "ftp://kokossimo.ru" }, "api.base_url"},
		{"threshold too high", func(c *Config) { c.Search.Threshold = 1.5 }, "search.threshold"},
		{"unknown env", func(c *Config) { c.Logging.Env = "staging" }, "logging.env"},
		{"unknown level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("KOKO_SET", "value")
	t.Setenv("KOKO_EMPTY", "")

	got := string(expandEnvVars([]byte("a=${KOKO_SET} b=${KOKO_EMPTY:-fallback} c=${KOKO_UNSET_VAR}")))
	assert.Equal(t, "a=value b=fallback c=", got)
}
