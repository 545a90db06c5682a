// FILE: actionwisp/src/internal/config/config.go
package config

import "actionwisp/src/internal/core"

// Config is the root configuration of actionwisp
type Config struct {
	// Runtime behavior
	Quiet     bool `toml:"quiet"`
	ExitOnEOF bool `toml:"exit_on_eof"`

	Coordinator *CoordinatorConfig `toml:"coordinator"`
	History     *HistoryConfig     `toml:"history"`
	Status      *StatusConfig      `toml:"status"`
	Logging     *LogConfig         `toml:"logging"`

	// Path the configuration was loaded from, not persisted
	ConfigFile string `toml:"-"`
}

// CoordinatorConfig describes the remote monitoring endpoint and session tuning
type CoordinatorConfig struct {
	// WebSocket endpoint, ws:// or wss://
	URL string `toml:"url"`

	DialTimeoutMS  int64 `toml:"dial_timeout_ms"`
	WriteTimeoutMS int64 `toml:"write_timeout_ms"`

	// Maximum wait for each handshake acknowledgment
	AckTimeoutMS int64 `toml:"ack_timeout_ms"`

	// Read deadline when the coordinator does not announce its own ping timeout
	PingTimeoutMS int64 `toml:"ping_timeout_ms"`

	// Outbound frame queue; frames are dropped when full
	QueueSize int64 `toml:"queue_size"`

	// Outbound pacing in frames per second, 0 disables
	EmitRate  float64 `toml:"emit_rate"`
	EmitBurst int64   `toml:"emit_burst"`

	// Automatic reconnect, 0 disables (the default)
	ReconnectDelayMS    int64   `toml:"reconnect_delay_ms"`
	MaxReconnectDelayMS int64   `toml:"max_reconnect_delay_ms"`
	ReconnectBackoff    float64 `toml:"reconnect_backoff"`

	TLS *TLSClientConfig `toml:"tls"`
}

// HistoryConfig sizes the replay buffer
type HistoryConfig struct {
	Capacity int64 `toml:"capacity"`
}

// StatusConfig controls the optional HTTP status endpoint
type StatusConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int64  `toml:"port"`
	Path    string `toml:"path"`
}

// DefaultCoordinatorConfig returns coordinator defaults
func DefaultCoordinatorConfig() *CoordinatorConfig {
	return &CoordinatorConfig{
		URL:                 core.DefaultEndpoint,
		DialTimeoutMS:       10000,
		WriteTimeoutMS:      10000,
		AckTimeoutMS:        10000,
		PingTimeoutMS:       20000,
		QueueSize:           2048,
		EmitRate:            0,
		EmitBurst:           100,
		ReconnectDelayMS:    0,
		MaxReconnectDelayMS: 30000,
		ReconnectBackoff:    1.5,
	}
}

func defaults() *Config {
	return &Config{
		Coordinator: DefaultCoordinatorConfig(),
		History: &HistoryConfig{
			Capacity: core.DefaultHistoryCapacity,
		},
		Status: &StatusConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    8089,
			Path:    "/status",
		},
		Logging: DefaultLogConfig(),
	}
}
