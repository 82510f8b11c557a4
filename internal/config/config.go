// Package config loads console configuration from a YAML file with sane
// defaults, plus environment overrides for the backend address and API key.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds visor configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Push    PushConfig    `yaml:"push"`
	Console ConsoleConfig `yaml:"console"`
}

type APIConfig struct {
	BaseURL string   `yaml:"base_url"` // e.g. "http://localhost:8000"
	KeyEnv  string   `yaml:"key_env"`  // env var holding the API key, e.g. "VISOR_API_KEY"
	Timeout Duration `yaml:"timeout"`
}

type PushConfig struct {
	URL          string   `yaml:"url"` // derived from api.base_url when empty
	PingInterval Duration `yaml:"ping_interval"`
}

type ConsoleConfig struct {
	PollInterval Duration `yaml:"poll_interval"`
	ResultLimit  int      `yaml:"result_limit"`
}

// Duration lets YAML carry Go duration strings ("5s", "1m30s").
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// DefaultPath returns the default config location, ~/.visor/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".visor", "config.yaml")
}

// Load reads configuration from a YAML file. A missing file yields the
// default config and no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg := defaultConfig()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	if cfg.API.KeyEnv == "" {
		cfg.API.KeyEnv = "VISOR_API_KEY"
	}
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = Duration(10 * time.Second)
	}
	if cfg.Push.PingInterval <= 0 {
		cfg.Push.PingInterval = Duration(30 * time.Second)
	}
	if cfg.Console.PollInterval <= 0 {
		cfg.Console.PollInterval = Duration(5 * time.Second)
	}
	if cfg.Console.ResultLimit <= 0 {
		cfg.Console.ResultLimit = 100
	}
	if cfg.Push.URL == "" {
		cfg.Push.URL = DerivePushURL(cfg.API.BaseURL)
	}
}

// applyEnv applies environment overrides. VISOR_API_URL replaces the backend
// address (and the derived push URL, unless one was set explicitly).
func applyEnv(cfg *Config) {
	if v := os.Getenv("VISOR_API_URL"); v != "" {
		derived := cfg.Push.URL == DerivePushURL(cfg.API.BaseURL)
		cfg.API.BaseURL = v
		if derived {
			cfg.Push.URL = DerivePushURL(v)
		}
	}
}

// APIKey resolves the API key through the configured env indirection. Empty
// when unset: the backend may run without auth.
func (c *Config) APIKey() string {
	return os.Getenv(c.API.KeyEnv)
}

// DerivePushURL converts an HTTP base URL into the matching websocket
// endpoint (http→ws, https→wss, path /ws).
func DerivePushURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}
