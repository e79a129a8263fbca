package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvAPIURL   = "KOKOCLI_API_URL"
	EnvLogLevel = "KOKOCLI_LOG_LEVEL"
	EnvEnv      = "KOKOCLI_ENV"
)

// Config holds the kokocli configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Search  SearchConfig  `yaml:"search"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig holds catalog service settings.
type APIConfig struct {
	BaseURL    string  `yaml:"base_url"`
	TimeoutSec int     `yaml:"timeout_sec"`
	RatePerSec float64 `yaml:"rate_per_sec"` // negative disables client-side limiting
	Burst      int     `yaml:"burst"`
}

// SearchConfig holds search and search-as-you-type settings.
type SearchConfig struct {
	Threshold    float64 `yaml:"threshold"`
	DebounceMS   int     `yaml:"debounce_ms"`
	SuggestLimit int     `yaml:"suggest_limit"`
}

// CacheConfig holds the in-process response cache settings.
type CacheConfig struct {
	Size   int `yaml:"size"`
	TTLSec int `yaml:"ttl_sec"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `yaml:"env"`   // local, dev, prod
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns a configuration with every default applied.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// Load builds the configuration. A .env file in the working directory is
// loaded first if present. path may be empty, in which case only defaults and
// environment overrides apply.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}

		// Substitute env variables of the form ${VAR}
		data = expandEnvVars(data)

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAPIURL); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvEnv); v != "" {
		c.Logging.Env = v
	}
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://kokossimo.ru/api"
	}
	if c.API.TimeoutSec <= 0 {
		c.API.TimeoutSec = 15
	}
	if c.API.RatePerSec == 0 {
		c.API.RatePerSec = 10
	}
	if c.API.Burst <= 0 {
		c.API.Burst = 5
	}
	if c.Search.Threshold <= 0 {
		c.Search.Threshold = 0.35
	}
	if c.Search.DebounceMS <= 0 {
		c.Search.DebounceMS = 200
	}
	if c.Search.SuggestLimit <= 0 {
		c.Search.SuggestLimit = 5
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = 64
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 60
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "local"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "warn"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute http(s) URL, got %q", c.API.BaseURL)
	}
	if c.Search.Threshold > 1 {
		return fmt.Errorf("search.threshold must be in (0,1], got %v", c.Search.Threshold)
	}
	switch c.Logging.Env {
	case "local", "dev", "prod":
	default:
		return fmt.Errorf("logging.env must be one of local, dev, prod, got %q", c.Logging.Env)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	return nil
}

// Timeout returns the HTTP client timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutSec) * time.Second
}

// DebounceDelay returns the search-as-you-type delay.
func (c Config) DebounceDelay() time.Duration {
	return time.Duration(c.Search.DebounceMS) * time.Millisecond
}

// CacheTTL returns how long cached catalog responses stay fresh.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSec) * time.Second
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
