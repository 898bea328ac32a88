// Package config loads the server configuration from an optional YAML file
// and environment overrides. The result is validated once and treated as
// immutable afterwards.
package config

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alexcong/askpro-mcp/pkg/apperr"
	"github.com/alexcong/askpro-mcp/pkg/provider"
)

// PathEnv names the environment variable holding the config file path.
const PathEnv = "ASKPRO_CONFIG"

// DefaultPath is read when PathEnv is unset. Its absence is not an error.
const DefaultPath = "askpro.yaml"

// Job ledger drivers.
const (
	DriverMemory = "memory"
	DriverRedis  = "redis"
)

// Config is the complete server configuration.
type Config struct {
	Reasoning ReasoningConfig `yaml:"reasoning"`
	Search    BackendConfig   `yaml:"search"`
	Log       LogConfig       `yaml:"log"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Jobs      JobsConfig      `yaml:"jobs"`
}

// BackendConfig describes one Responses API backend.
type BackendConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Provider converts the settings into a provider.Config.
func (b BackendConfig) Provider() provider.Config {
	return provider.Config{
		APIKey:  b.APIKey,
		Model:   b.Model,
		BaseURL: b.BaseURL,
		Timeout: b.Timeout,
	}
}

// ReasoningConfig adds background-mode control to the reasoning backend.
type ReasoningConfig struct {
	BackendConfig `yaml:",inline"`
	// Background is a pointer so an explicit false in YAML survives
	// defaulting.
	Background *bool `yaml:"background"`
}

// BackgroundEnabled reports whether ask_gpt should enqueue background jobs.
func (r ReasoningConfig) BackgroundEnabled() bool {
	return r.Background == nil || *r.Background
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level       string   `yaml:"level"`
	Format      string   `yaml:"format"`
	OutputPaths []string `yaml:"output_paths"`
}

// MetricsConfig controls the Prometheus endpoint. An empty address
// disables it.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// JobsConfig selects the job ledger.
type JobsConfig struct {
	Driver string      `yaml:"driver"`
	Redis  RedisConfig `yaml:"redis"`
}

// RedisConfig describes the Redis ledger connection.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// Load reads path (if it exists), applies environment overrides and
// defaults, and validates the result. An empty path selects PathEnv or
// DefaultPath; only an explicitly requested file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv(PathEnv)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return nil, apperr.Wrap(apperr.CodeConfiguration, err, "parse config "+path)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, apperr.Wrap(apperr.CodeConfiguration, err, "read config "+path)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv overrides file values with non-empty environment variables.
func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst ...*time.Duration) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return apperr.Configuration("%s: invalid duration %q", key, v)
		}
		for _, p := range dst {
			*p = d
		}
		return nil
	}

	str("OPENAI_API_KEY", &c.Reasoning.APIKey)
	str("OPENAI_MODEL", &c.Reasoning.Model)
	str("OPENAI_BASE_URL", &c.Reasoning.BaseURL)
	str("SEARCH_API_KEY", &c.Search.APIKey)
	str("SEARCH_MODEL", &c.Search.Model)
	str("SEARCH_BASE_URL", &c.Search.BaseURL)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("METRICS_ADDR", &c.Metrics.Address)
	str("JOBS_DRIVER", &c.Jobs.Driver)
	str("REDIS_ADDR", &c.Jobs.Redis.Addr)
	str("REDIS_PASSWORD", &c.Jobs.Redis.Password)

	if v, ok := lookup("OPENAI_BACKGROUND"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return apperr.Configuration("OPENAI_BACKGROUND: invalid boolean %q", v)
		}
		c.Reasoning.Background = &b
	}
	if v, ok := lookup("REDIS_DB"); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return apperr.Configuration("REDIS_DB: invalid integer %q", v)
		}
		c.Jobs.Redis.DB = n
	}
	if err := dur("REQUEST_TIMEOUT", &c.Reasoning.Timeout, &c.Search.Timeout); err != nil {
		return err
	}
	return dur("JOBS_TTL", &c.Jobs.Redis.TTL)
}

func (c *Config) applyDefaults() {
	for _, b := range []*BackendConfig{&c.Reasoning.BackendConfig, &c.Search} {
		if b.BaseURL == "" {
			b.BaseURL = provider.DefaultBaseURL
		}
		if b.Timeout == 0 {
			b.Timeout = provider.DefaultTimeout
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Jobs.Driver == "" {
		c.Jobs.Driver = DriverMemory
	}
	if c.Jobs.Redis.Addr == "" {
		c.Jobs.Redis.Addr = "localhost:6379"
	}
	if c.Jobs.Redis.TTL == 0 {
		c.Jobs.Redis.TTL = 24 * time.Hour
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	backends := []struct {
		section string
		cfg     BackendConfig
	}{
		{"reasoning", c.Reasoning.BackendConfig},
		{"search", c.Search},
	}
	for _, b := range backends {
		if strings.TrimSpace(b.cfg.APIKey) == "" {
			return apperr.Configuration("%s.api_key is required", b.section)
		}
		if strings.TrimSpace(b.cfg.Model) == "" {
			return apperr.Configuration("%s.model is required", b.section)
		}
		u, err := url.Parse(b.cfg.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperr.Configuration("%s.base_url must be an http(s) URL, got %q", b.section, b.cfg.BaseURL)
		}
		if b.cfg.Timeout < 0 {
			return apperr.Configuration("%s.timeout must not be negative", b.section)
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return apperr.Configuration("log.format must be json or text, got %q", c.Log.Format)
	}

	switch c.Jobs.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Jobs.Redis.DB < 0 {
			return apperr.Configuration("jobs.redis.db must not be negative")
		}
	default:
		return apperr.Configuration("jobs.driver must be %s or %s, got %q", DriverMemory, DriverRedis, c.Jobs.Driver)
	}
	return nil
}

// Summary is a log-safe description of the configuration. Secrets are
// reported only as present or absent.
func (c *Config) Summary() []any {
	return []any{
		"reasoning_model", c.Reasoning.Model,
		"reasoning_key_set", c.Reasoning.APIKey != "",
		"background", c.Reasoning.BackgroundEnabled(),
		"search_model", c.Search.Model,
		"search_key_set", c.Search.APIKey != "",
		"jobs_driver", c.Jobs.Driver,
		"metrics_enabled", c.Metrics.Address != "",
	}
}
