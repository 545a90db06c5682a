// FILE: actionwisp/src/internal/config/validation.go
package config

import (
	"fmt"
	"net/url"
	"os"

	lconfig "github.com/lixenwraith/config"
)

// validateConfig is the centralized validator, it also fills unset sections
func validateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Coordinator == nil {
		cfg.Coordinator = DefaultCoordinatorConfig()
	}
	if err := ValidateCoordinator(cfg.Coordinator); err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}

	if cfg.History == nil {
		cfg.History = defaults().History
	}
	if cfg.History.Capacity < 1 {
		return fmt.Errorf("history: capacity must be positive: %d", cfg.History.Capacity)
	}

	if cfg.Status == nil {
		cfg.Status = defaults().Status
	}
	if err := validateStatus(cfg.Status); err != nil {
		return fmt.Errorf("status: %w", err)
	}

	if cfg.Logging == nil {
		cfg.Logging = DefaultLogConfig()
	}
	if err := validateLogConfig(cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// ValidateCoordinator checks the endpoint and fills defaults for unset tuning values
func ValidateCoordinator(opts *CoordinatorConfig) error {
	if err := lconfig.NonEmpty(opts.URL); err != nil {
		return fmt.Errorf("url is required")
	}

	parsedURL, err := url.Parse(opts.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if parsedURL.Scheme != "ws" && parsedURL.Scheme != "wss" {
		return fmt.Errorf("url must use ws or wss scheme: %s", opts.URL)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("url has no host: %s", opts.URL)
	}

	def := DefaultCoordinatorConfig()
	if opts.DialTimeoutMS <= 0 {
		opts.DialTimeoutMS = def.DialTimeoutMS
	}
	if opts.WriteTimeoutMS <= 0 {
		opts.WriteTimeoutMS = def.WriteTimeoutMS
	}
	if opts.AckTimeoutMS <= 0 {
		opts.AckTimeoutMS = def.AckTimeoutMS
	}
	if opts.PingTimeoutMS <= 0 {
		opts.PingTimeoutMS = def.PingTimeoutMS
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = def.QueueSize
	}
	if opts.EmitRate < 0 {
		return fmt.Errorf("emit_rate cannot be negative: %v", opts.EmitRate)
	}
	if opts.EmitBurst <= 0 {
		opts.EmitBurst = def.EmitBurst
	}
	if opts.ReconnectDelayMS < 0 {
		return fmt.Errorf("reconnect_delay_ms cannot be negative: %d", opts.ReconnectDelayMS)
	}
	if opts.MaxReconnectDelayMS < opts.ReconnectDelayMS {
		opts.MaxReconnectDelayMS = max(opts.ReconnectDelayMS, def.MaxReconnectDelayMS)
	}
	if opts.ReconnectBackoff < 1.0 {
		opts.ReconnectBackoff = def.ReconnectBackoff
	}

	if opts.TLS != nil && opts.TLS.Enabled {
		if parsedURL.Scheme != "wss" {
			return fmt.Errorf("tls enabled but url scheme is %s", parsedURL.Scheme)
		}
		if err := validateTLSClient(opts.TLS); err != nil {
			return fmt.Errorf("tls: %w", err)
		}
	}

	return nil
}

func validateTLSClient(opts *TLSClientConfig) error {
	if (opts.ClientCertFile == "") != (opts.ClientKeyFile == "") {
		return fmt.Errorf("both client_cert_file and client_key_file must be provided for mTLS")
	}
	for _, f := range []string{opts.ClientCertFile, opts.ClientKeyFile, opts.ServerCAFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("file is not accessible: %w", err)
		}
	}

	validVersions := map[string]bool{"": true, "TLS1.2": true, "TLS1.3": true}
	if !validVersions[opts.MinVersion] {
		return fmt.Errorf("invalid min TLS version: %s", opts.MinVersion)
	}
	if !validVersions[opts.MaxVersion] {
		return fmt.Errorf("invalid max TLS version: %s", opts.MaxVersion)
	}
	return nil
}

func validateStatus(opts *StatusConfig) error {
	if !opts.Enabled {
		return nil
	}
	if err := lconfig.Port(opts.Port); err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if opts.Path == "" {
		opts.Path = "/status"
	}
	if opts.Path[0] != '/' {
		return fmt.Errorf("path must start with '/': %s", opts.Path)
	}
	return nil
}

func validateLogConfig(cfg *LogConfig) error {
	validOutputs := map[string]bool{
		"file": true, "stdout": true, "stderr": true,
		"both": true, "none": true,
	}
	if !validOutputs[cfg.Output] {
		return fmt.Errorf("invalid log output mode: %s", cfg.Output)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[cfg.Level] {
		return fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	if cfg.Console != nil {
		validTargets := map[string]bool{
			"stdout": true, "stderr": true, "": true,
		}
		if !validTargets[cfg.Console.Target] {
			return fmt.Errorf("invalid console target: %s", cfg.Console.Target)
		}

		validFormats := map[string]bool{
			"txt": true, "json": true, "": true,
		}
		if !validFormats[cfg.Console.Format] {
			return fmt.Errorf("invalid console format: %s", cfg.Console.Format)
		}
	}

	return nil
}
