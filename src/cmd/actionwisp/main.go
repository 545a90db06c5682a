// FILE: actionwisp/src/cmd/actionwisp/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"actionwisp/src/internal/config"
	"actionwisp/src/internal/input"
	"actionwisp/src/internal/version"

	"github.com/lixenwraith/log"
	"golang.org/x/term"
)

var logger *log.Logger

func main() {
	flagCfg, err := ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if flagCfg.ShowHelp {
		os.Exit(0)
	}

	if flagCfg.ShowVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	if flagCfg.ConfigFile != "" {
		if _, err := os.Stat(flagCfg.ConfigFile); err != nil {
			FatalError(2, "Config file not found: %s\n", flagCfg.ConfigFile)
		}
		os.Setenv("ACTIONWISP_CONFIG_FILE", flagCfg.ConfigFile)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		FatalError(1, "Failed to load config: %v\n", err)
	}

	// Flags win over file and environment
	if flagCfg.Quiet {
		cfg.Quiet = true
	}
	if flagCfg.ExitOnEOF {
		cfg.ExitOnEOF = true
	}
	if flagCfg.LogLevel != "" {
		cfg.Logging.Level = flagCfg.LogLevel
	}

	InitOutputHandler(cfg.Quiet)

	if flagCfg.SaveConfig != "" {
		if err := cfg.SaveToFile(flagCfg.SaveConfig, false); err != nil {
			FatalError(1, "Failed to save config: %v\n", err)
		}
		Print("Configuration written to %s\n", flagCfg.SaveConfig)
		os.Exit(0)
	}

	if err := initializeLogger(cfg); err != nil {
		FatalError(1, "Failed to initialize logger: %v\n", err)
	}
	defer shutdownLogger()

	logger.Info("msg", "ActionWisp starting",
		"version", version.String(),
		"config_file", cfg.ConfigFile,
		"log_output", cfg.Logging.Output)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, statusServer, err := bootstrapStreamer(ctx, cfg)
	if err != nil {
		logger.Error("msg", "Failed to bootstrap streamer", "error", err)
		shutdownLogger()
		os.Exit(1)
	}

	sigHandler := NewSignalHandler(s, logger)
	defer sigHandler.Stop()

	if term.IsTerminal(int(os.Stdin.Fd())) {
		Error("Reading JSON lines from the terminal; send {\"init\": ...} or {\"action\": ..., \"state\": ...}\n")
	}

	reader := input.NewReader(os.Stdin, s, logger)
	inputDone := make(chan error, 1)
	go func() {
		inputDone <- reader.Run(ctx)
	}()

	if enableStatusReporter() {
		go statusReporter(ctx, s, reader)
	}

	// Wait for a termination signal, or end of input when asked to exit on EOF
	sigCtx, sigCancel := context.WithCancel(ctx)
	go func() {
		err := <-inputDone
		if err != nil {
			logger.Error("msg", "Input stopped", "error", err)
		}
		if cfg.ExitOnEOF {
			logger.Info("msg", "End of input, shutting down")
			sigCancel()
			return
		}
		logger.Info("msg", "End of input, history kept for replay until shutdown")
	}()

	if sig := sigHandler.Handle(sigCtx); sig != nil {
		logger.Info("msg", "Shutdown signal received, starting graceful shutdown", "signal", sig)
	}
	sigCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		if statusServer != nil {
			statusServer.Stop()
		}
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("msg", "Shutdown complete")
	case <-shutdownCtx.Done():
		logger.Error("msg", "Shutdown timeout exceeded - forcing exit")
		shutdownLogger()
		os.Exit(1)
	}
}

func shutdownLogger() {
	if logger != nil {
		if err := logger.Shutdown(2 * time.Second); err != nil {
			Error("Logger shutdown error: %v\n", err)
		}
	}
}
