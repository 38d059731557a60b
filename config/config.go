package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration of the phyn CLI.
type Config struct {
	API     API     `yaml:"api"`
	Storage Storage `yaml:"storage"`
	Logging Logging `yaml:"logging"`
	Mock    Mock    `yaml:"mock"`
}

// API configures the remote endpoint.
type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Storage holds the local database location.
type Storage struct {
	DBPath string `yaml:"db_path"`
}

// Logging configures zerolog.
type Logging struct {
	Level string `yaml:"level"`
}

// Mock configures the bundled mock API server.
type Mock struct {
	Addr     string        `yaml:"addr"`
	TokenTTL time.Duration `yaml:"token_ttl"`
	Secret   string        `yaml:"secret"`
}

const (
	defaultBaseURL  = "http://localhost:8080/api/v1"
	defaultTimeout  = 10 * time.Second
	defaultLogLevel = "disabled"
	defaultMockAddr = "127.0.0.1:8080"
	defaultTokenTTL = 15 * time.Minute
	defaultSecret   = "phyn-mock-secret"
)

// Dir returns the phyn home directory: PHYN_HOME, else ~/.phyn.
func Dir() string {
	if home := os.Getenv("PHYN_HOME"); home != "" {
		return home
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".phyn")
}

// DefaultPath is where Load looks when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API:     API{BaseURL: defaultBaseURL, Timeout: defaultTimeout},
		Storage: Storage{DBPath: filepath.Join(Dir(), "phyn.db")},
		Logging: Logging{Level: defaultLogLevel},
		Mock:    Mock{Addr: defaultMockAddr, TokenTTL: defaultTokenTTL, Secret: defaultSecret},
	}
}

// Load reads the YAML file at path over the defaults, then applies environment
// overrides. A missing file is not an error; an unreadable or malformed one is.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets PHYN_* variables win over the file.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PHYN_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("PHYN_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PHYN_API_TIMEOUT %q: %w", v, err)
		}
		cfg.API.Timeout = d
	}
	if v := os.Getenv("PHYN_DB_PATH"); v != "" {
		cfg.Storage.DBPath = v
	}
	if v := os.Getenv("PHYN_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// Validate checks the values a run cannot do without.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url cannot be empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	if c.Mock.TokenTTL < 0 {
		return fmt.Errorf("mock.token_ttl cannot be negative")
	}
	return nil
}

// LogLevel parses logging.level. An empty level means disabled.
func (c *Config) LogLevel() (zerolog.Level, error) {
	if c.Logging.Level == "" {
		return zerolog.Disabled, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.Logging.Level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	return lvl, nil
}

// Save writes cfg as YAML, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
