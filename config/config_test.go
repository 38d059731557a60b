package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	t.Setenv("PHYN_HOME", t.TempDir())
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, "disabled", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(os.Getenv("PHYN_HOME"), "phyn.db"), cfg.Storage.DBPath)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeFile(t, `
api:
  base_url: "https://api.phynance.test/api/v1"
  timeout: 3s
logging:
  level: debug
mock:
  addr: ":9999"
  token_ttl: 30s
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.phynance.test/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, ":9999", cfg.Mock.Addr)
	assert.Equal(t, 30*time.Second, cfg.Mock.TokenTTL)
	assert.Equal(t, defaultSecret, cfg.Mock.Secret, "unset keys keep their defaults")

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, lvl)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeFile(t, "api:\n  base_url: http://from-file\n")
	t.Setenv("PHYN_API_URL", "http://from-env/api/v1")
	t.Setenv("PHYN_API_TIMEOUT", "250ms")
	t.Setenv("PHYN_DB_PATH", "/tmp/x.db")
	t.Setenv("PHYN_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.API.Timeout)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.DBPath)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeFile(t, "api: [not: a map"))
	assert.Error(t, err)

	t.Setenv("PHYN_API_TIMEOUT", "soon")
	_, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"empty url", func(c *Config) { c.API.BaseURL = " " }, false},
		{"zero timeout", func(c *Config) { c.API.Timeout = 0 }, false},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, false},
		{"upper level", func(c *Config) { c.Logging.Level = "INFO" }, true},
		{"empty level", func(c *Config) { c.Logging.Level = "" }, true},
		{"negative ttl", func(c *Config) { c.Mock.TokenTTL = -time.Second }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.API.Timeout = 42 * time.Second
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 42*time.Second, loaded.API.Timeout)
}
