// FILE: actionwisp/src/cmd/actionwisp/bootstrap.go
package main

import (
	"context"
	"fmt"
	"strings"

	"actionwisp/src/internal/config"
	"actionwisp/src/internal/status"
	"actionwisp/src/internal/streamer"
	"actionwisp/src/internal/version"

	"github.com/lixenwraith/log"
)

// bootstrapStreamer creates the streamer and the optional status server
func bootstrapStreamer(ctx context.Context, cfg *config.Config) (*streamer.Streamer, *status.Server, error) {
	s, err := streamer.New(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create streamer: %w", err)
	}

	if err := s.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to start streamer: %w", err)
	}

	var statusServer *status.Server
	if cfg.Status != nil && cfg.Status.Enabled {
		statusServer = status.NewServer(cfg.Status, s, logger)
		if err := statusServer.Start(ctx); err != nil {
			s.Stop()
			return nil, nil, fmt.Errorf("failed to start status server: %w", err)
		}
		Print("Status endpoint: http://%s%s\n", statusServer.Addr(), cfg.Status.Path)
	}

	logger.Info("msg", "ActionWisp started",
		"version", version.Short(),
		"coordinator", cfg.Coordinator.URL,
		"history_capacity", cfg.History.Capacity,
		"status_enabled", statusServer != nil)

	return s, statusServer, nil
}

// initializeLogger sets up the logger based on configuration
func initializeLogger(cfg *config.Config) error {
	logger = log.NewLogger()

	var configArgs []string

	if cfg.Quiet {
		// In quiet mode, disable ALL logging output
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=false",
			"level=255")

		return startLogger(configArgs)
	}

	levelValue, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	configArgs = append(configArgs, fmt.Sprintf("level=%d", levelValue))

	switch cfg.Logging.Output {
	case "none":
		configArgs = append(configArgs, "disable_file=true", "enable_stdout=false")

	case "stdout", "stderr":
		configArgs = append(configArgs,
			"disable_file=true",
			"enable_stdout=true",
			fmt.Sprintf("stdout_target=%s", cfg.Logging.Output))

	case "file":
		configArgs = append(configArgs, "enable_stdout=false")
		configureFileLogging(&configArgs, cfg)

	case "both":
		configArgs = append(configArgs, "enable_stdout=true")
		configureFileLogging(&configArgs, cfg)
		configureConsoleTarget(&configArgs, cfg)

	default:
		return fmt.Errorf("invalid log output mode: %s", cfg.Logging.Output)
	}

	if cfg.Logging.Console != nil && cfg.Logging.Console.Format != "" {
		configArgs = append(configArgs, fmt.Sprintf("format=%s", cfg.Logging.Console.Format))
	}

	return startLogger(configArgs)
}

func startLogger(configArgs []string) error {
	if err := logger.ApplyConfigString(configArgs...); err != nil {
		return err
	}
	return logger.Start()
}

// configureFileLogging sets up file-based logging parameters
func configureFileLogging(configArgs *[]string, cfg *config.Config) {
	if cfg.Logging.File == nil {
		return
	}

	*configArgs = append(*configArgs,
		"disable_file=false",
		fmt.Sprintf("directory=%s", cfg.Logging.File.Directory),
		fmt.Sprintf("name=%s", cfg.Logging.File.Name),
		fmt.Sprintf("max_size_mb=%d", cfg.Logging.File.MaxSizeMB),
		fmt.Sprintf("max_total_size_mb=%d", cfg.Logging.File.MaxTotalSizeMB))

	if cfg.Logging.File.RetentionHours > 0 {
		*configArgs = append(*configArgs,
			fmt.Sprintf("retention_period_hrs=%.1f", cfg.Logging.File.RetentionHours))
	}
}

// configureConsoleTarget keeps console logs off stdout unless asked
func configureConsoleTarget(configArgs *[]string, cfg *config.Config) {
	target := "stderr"
	if cfg.Logging.Console != nil && cfg.Logging.Console.Target != "" {
		target = cfg.Logging.Console.Target
	}
	*configArgs = append(*configArgs, fmt.Sprintf("stdout_target=%s", target))
}

func parseLogLevel(level string) (int64, error) {
	switch strings.ToLower(level) {
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}
