package config

import "time"

// APIConfig points taskwatch at the test-generation gateway.
type APIConfig struct {
	URL     string        `mapstructure:"url" yaml:"url"`
	Token   string        `mapstructure:"token" yaml:"token,omitempty"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// MonitorConfig controls the task list poll.
type MonitorConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PageSize     int           `mapstructure:"page_size" yaml:"page_size"`
}

// StreamConfig controls the per-task event subscription.
type StreamConfig struct {
	ReconnectInterval    time.Duration `mapstructure:"reconnect_interval" yaml:"reconnect_interval"`
	MaxReconnectInterval time.Duration `mapstructure:"max_reconnect_interval" yaml:"max_reconnect_interval"`
	MaxReconnectAttempts int           `mapstructure:"max_reconnect_attempts" yaml:"max_reconnect_attempts"`
}

// CacheConfig sizes the in-memory detail cache.
type CacheConfig struct {
	DetailSize int `mapstructure:"detail_size" yaml:"detail_size"`
}

// LogConfig selects the log level and destination.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	// File receives log output while the terminal UI owns the screen.
	// Empty means stderr.
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// ServerConfig enables the optional local status server.
type ServerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:9108". Empty disables it.
	Addr string `mapstructure:"addr" yaml:"addr,omitempty"`
}

// Config represents taskwatch.yaml merged with environment and flags.
type Config struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Monitor MonitorConfig `mapstructure:"monitor" yaml:"monitor"`
	Stream  StreamConfig  `mapstructure:"stream" yaml:"stream"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}
