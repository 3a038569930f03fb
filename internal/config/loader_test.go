package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_ValidFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `api:
  url: https://gateway.example.com/api/v1
  token: secret
  timeout: 10s
monitor:
  poll_interval: 2s
  page_size: 20
stream:
  reconnect_interval: 500ms
  max_reconnect_interval: 5s
  max_reconnect_attempts: 3
cache:
  detail_size: 8
log:
  level: debug
  file: /tmp/taskwatch.log
server:
  addr: 127.0.0.1:9108
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://gateway.example.com/api/v1", cfg.API.URL)
	assert.Equal(t, "secret", cfg.API.Token)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, 20, cfg.Monitor.PageSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Stream.ReconnectInterval)
	assert.Equal(t, 5*time.Second, cfg.Stream.MaxReconnectInterval)
	assert.Equal(t, 3, cfg.Stream.MaxReconnectAttempts)
	assert.Equal(t, 8, cfg.Cache.DetailSize)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/tmp/taskwatch.log", cfg.Log.File)
	assert.Equal(t, "127.0.0.1:9108", cfg.Server.Addr)
}

func TestLoadFile_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "monitor:\n  poll_interval: 1s\n")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Monitor.PollInterval)
	assert.Equal(t, DefaultPageSize, cfg.Monitor.PageSize)
	assert.Equal(t, DefaultAPIURL, cfg.API.URL)
	assert.Equal(t, DefaultMaxReconnectAttempts, cfg.Stream.MaxReconnectAttempts)
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadFile_Invalid(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "monitor:\n  page_size: 500\n")

	_, err := LoadFile(path)
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "monitor.page_size", verr.Field)
}

func TestLoad_SearchPathWithoutFile(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)

	cfg, err := Load(NewViper(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "api:\n  url: http://file.example.com/api/v1\n")
	t.Setenv("TASKWATCH_API_URL", "http://env.example.com/api/v1")
	t.Setenv("TASKWATCH_MONITOR_POLL_INTERVAL", "7s")

	cfg, err := Load(NewViper(path))
	require.NoError(t, err)

	assert.Equal(t, "http://env.example.com/api/v1", cfg.API.URL)
	assert.Equal(t, 7*time.Second, cfg.Monitor.PollInterval)
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"relative url", func(c *Config) { c.API.URL = "/api/v1" }, "api.url"},
		{"ftp url", func(c *Config) { c.API.URL = "ftp://host/api" }, "api.url"},
		{"negative timeout", func(c *Config) { c.API.Timeout = -time.Second }, "api.timeout"},
		{"zero poll interval", func(c *Config) { c.Monitor.PollInterval = 0 }, "monitor.poll_interval"},
		{"zero page size", func(c *Config) { c.Monitor.PageSize = 0 }, "monitor.page_size"},
		{"zero reconnect interval", func(c *Config) { c.Stream.ReconnectInterval = 0 }, "stream.reconnect_interval"},
		{"cap below base", func(c *Config) { c.Stream.MaxReconnectInterval = time.Millisecond }, "stream.max_reconnect_interval"},
		{"negative attempts", func(c *Config) { c.Stream.MaxReconnectAttempts = -1 }, "stream.max_reconnect_attempts"},
		{"zero cache", func(c *Config) { c.Cache.DetailSize = 0 }, "cache.detail_size"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(&cfg)
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			var verr ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestMarshal_RedactsToken(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.API.Token = "secret"

	data, err := Marshal(&cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(data, &back))
	api := back["api"].(map[string]any)
	assert.Equal(t, "********", api["token"])
	assert.Equal(t, "5s", back["monitor"].(map[string]any)["poll_interval"])
	assert.Equal(t, "secret", cfg.API.Token, "original config must not be modified")
}
