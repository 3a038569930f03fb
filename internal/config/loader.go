package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Default values for Config.
const (
	DefaultAPIURL               = "http://localhost:8000/api/v1"
	DefaultAPITimeout           = 30 * time.Second
	DefaultPollInterval         = 5 * time.Second
	DefaultPageSize             = 50
	DefaultReconnectInterval    = time.Second
	DefaultMaxReconnectInterval = 30 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultDetailCacheSize      = 64
	DefaultLogLevel             = "warn"

	// MaxPageSize is the largest page the gateway accepts.
	MaxPageSize = 100

	// EnvPrefix prefixes environment overrides, e.g. TASKWATCH_API_URL.
	EnvPrefix = "TASKWATCH"

	// FileName is the config file base name searched for by Load.
	FileName = "taskwatch"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			URL:     DefaultAPIURL,
			Timeout: DefaultAPITimeout,
		},
		Monitor: MonitorConfig{
			PollInterval: DefaultPollInterval,
			PageSize:     DefaultPageSize,
		},
		Stream: StreamConfig{
			ReconnectInterval:    DefaultReconnectInterval,
			MaxReconnectInterval: DefaultMaxReconnectInterval,
			MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		},
		Cache: CacheConfig{
			DetailSize: DefaultDetailCacheSize,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// SetDefaults registers every default on v so that environment variables
// are recognised for keys that no config file mentions.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("api.url", d.API.URL)
	v.SetDefault("api.token", d.API.Token)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("monitor.poll_interval", d.Monitor.PollInterval)
	v.SetDefault("monitor.page_size", d.Monitor.PageSize)
	v.SetDefault("stream.reconnect_interval", d.Stream.ReconnectInterval)
	v.SetDefault("stream.max_reconnect_interval", d.Stream.MaxReconnectInterval)
	v.SetDefault("stream.max_reconnect_attempts", d.Stream.MaxReconnectAttempts)
	v.SetDefault("cache.detail_size", d.Cache.DetailSize)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("server.addr", d.Server.Addr)
}

// NewViper returns a viper instance configured with taskwatch defaults,
// environment overrides and the standard config search path. If path is
// non-empty it is used instead of the search path.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/taskwatch")
	}
	return v
}

// Load reads the config file (if any) into v and decodes the merged result.
// A missing file is not an error when the search path was used.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFile reads a single config file with no environment layering.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateConfig checks that all config values are valid.
func ValidateConfig(cfg *Config) error {
	u, err := url.Parse(cfg.API.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ValidationError{Field: "api.url", Message: "must be an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: "api.url", Message: "scheme must be http or https"}
	}
	if cfg.API.Timeout < 0 {
		return ValidationError{Field: "api.timeout", Message: "must not be negative"}
	}
	if cfg.Monitor.PollInterval <= 0 {
		return ValidationError{Field: "monitor.poll_interval", Message: "must be positive"}
	}
	if cfg.Monitor.PageSize < 1 || cfg.Monitor.PageSize > MaxPageSize {
		return ValidationError{Field: "monitor.page_size", Message: fmt.Sprintf("must be between 1 and %d", MaxPageSize)}
	}
	if cfg.Stream.ReconnectInterval <= 0 {
		return ValidationError{Field: "stream.reconnect_interval", Message: "must be positive"}
	}
	if cfg.Stream.MaxReconnectInterval < cfg.Stream.ReconnectInterval {
		return ValidationError{Field: "stream.max_reconnect_interval", Message: "must not be less than stream.reconnect_interval"}
	}
	if cfg.Stream.MaxReconnectAttempts < 0 {
		return ValidationError{Field: "stream.max_reconnect_attempts", Message: "must not be negative"}
	}
	if cfg.Cache.DetailSize <= 0 {
		return ValidationError{Field: "cache.detail_size", Message: "must be positive"}
	}
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return ValidationError{Field: "log.level", Message: "must be one of debug, info, warn, error"}
	}
	return nil
}

// Marshal renders cfg as YAML with the token redacted.
func Marshal(cfg *Config) ([]byte, error) {
	out := *cfg
	if out.API.Token != "" {
		out.API.Token = "********"
	}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
