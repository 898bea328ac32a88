package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alexcong/askpro-mcp/pkg/apperr"
	"github.com/alexcong/askpro-mcp/pkg/provider"
)

var envKeys = []string{
	PathEnv,
	"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "OPENAI_BACKGROUND",
	"SEARCH_API_KEY", "SEARCH_MODEL", "SEARCH_BASE_URL",
	"REQUEST_TIMEOUT", "LOG_LEVEL", "LOG_FORMAT", "METRICS_ADDR",
	"JOBS_DRIVER", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "JOBS_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "askpro.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFileWithEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
reasoning:
  api_key: file-key
  model: o3-deep-research
  background: false
search:
  api_key: search-key
  model: gpt-4o
  base_url: https://proxy.example/v1
  timeout: 30s
jobs:
  driver: redis
  redis:
    addr: redis:6379
    ttl: 2h
`)
	t.Setenv("OPENAI_MODEL", "o4-mini")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Reasoning.APIKey != "file-key" || cfg.Reasoning.Model != "o4-mini" {
		t.Fatalf("unexpected reasoning config: %+v", cfg.Reasoning)
	}
	if cfg.Reasoning.BackgroundEnabled() {
		t.Fatalf("explicit background: false should survive defaulting")
	}
	if cfg.Reasoning.BaseURL != provider.DefaultBaseURL || cfg.Reasoning.Timeout != provider.DefaultTimeout {
		t.Fatalf("reasoning defaults not applied: %+v", cfg.Reasoning)
	}
	if cfg.Search.BaseURL != "https://proxy.example/v1" || cfg.Search.Timeout != 30*time.Second {
		t.Fatalf("unexpected search config: %+v", cfg.Search)
	}
	if cfg.Jobs.Driver != DriverRedis || cfg.Jobs.Redis.Addr != "redis:6379" || cfg.Jobs.Redis.DB != 3 || cfg.Jobs.Redis.TTL != 2*time.Hour {
		t.Fatalf("unexpected jobs config: %+v", cfg.Jobs)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Fatalf("log defaults not applied: %+v", cfg.Log)
	}
}

func TestLoadFromEnvOnly(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv("OPENAI_API_KEY", "k1")
	t.Setenv("OPENAI_MODEL", "o3")
	t.Setenv("SEARCH_API_KEY", "k2")
	t.Setenv("SEARCH_MODEL", "gpt-4o")
	t.Setenv("REQUEST_TIMEOUT", "90s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Reasoning.BackgroundEnabled() {
		t.Fatalf("background should default to enabled")
	}
	if cfg.Reasoning.Timeout != 90*time.Second || cfg.Search.Timeout != 90*time.Second {
		t.Fatalf("REQUEST_TIMEOUT should apply to both backends: %v %v", cfg.Reasoning.Timeout, cfg.Search.Timeout)
	}
	if cfg.Jobs.Driver != DriverMemory {
		t.Fatalf("unexpected driver %q", cfg.Jobs.Driver)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if !apperr.HasCode(err, apperr.CodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]struct {
		env  map[string]string
		want string
	}{
		"missing reasoning key": {
			env:  map[string]string{"OPENAI_MODEL": "o3", "SEARCH_API_KEY": "k", "SEARCH_MODEL": "m"},
			want: "reasoning.api_key is required",
		},
		"missing search model": {
			env:  map[string]string{"OPENAI_API_KEY": "k", "OPENAI_MODEL": "o3", "SEARCH_API_KEY": "k"},
			want: "search.model is required",
		},
		"bad base url": {
			env:  map[string]string{"OPENAI_API_KEY": "k", "OPENAI_MODEL": "o3", "SEARCH_API_KEY": "k", "SEARCH_MODEL": "m", "SEARCH_BASE_URL": "ftp://x"},
			want: "search.base_url",
		},
		"bad duration": {
			env:  map[string]string{"REQUEST_TIMEOUT": "soon"},
			want: "REQUEST_TIMEOUT",
		},
		"bad boolean": {
			env:  map[string]string{"OPENAI_BACKGROUND": "maybe"},
			want: "OPENAI_BACKGROUND",
		},
		"bad driver": {
			env:  map[string]string{"OPENAI_API_KEY": "k", "OPENAI_MODEL": "o3", "SEARCH_API_KEY": "k", "SEARCH_MODEL": "m", "JOBS_DRIVER": "etcd"},
			want: "jobs.driver",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			chdir(t, t.TempDir())
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if !apperr.HasCode(err, apperr.CodeConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestSummaryHidesSecrets(t *testing.T) {
	cfg := Config{}
	cfg.Reasoning.APIKey = "sk-secret"
	for _, v := range cfg.Summary() {
		if s, ok := v.(string); ok && strings.Contains(s, "sk-secret") {
			t.Fatalf("summary leaked the api key")
		}
	}
}

// chdir stands in for testing.T.Chdir (Go 1.24+): it changes the working
// directory for the duration of the test and restores it on cleanup.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
