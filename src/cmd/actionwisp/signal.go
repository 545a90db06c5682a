// FILE: actionwisp/src/cmd/actionwisp/signal.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"actionwisp/src/internal/streamer"

	"github.com/lixenwraith/log"
)

// SignalHandler maps OS signals to streamer operations
type SignalHandler struct {
	streamer *streamer.Streamer
	logger   *log.Logger
	sigChan  chan os.Signal
}

// NewSignalHandler registers for termination, reconnect and status signals
func NewSignalHandler(s *streamer.Streamer, logger *log.Logger) *SignalHandler {
	sh := &SignalHandler{
		streamer: s,
		logger:   logger,
		sigChan:  make(chan os.Signal, 1),
	}

	signal.Notify(sh.sigChan,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,  // Reconnect to the coordinator
		syscall.SIGUSR1, // Log a status report
	)

	return sh
}

// Handle blocks until a termination signal arrives or ctx is done
func (sh *SignalHandler) Handle(ctx context.Context) os.Signal {
	for {
		select {
		case sig := <-sh.sigChan:
			switch sig {
			case syscall.SIGHUP:
				sh.logger.Info("msg", "Reconnect signal received", "signal", sig)
				if err := sh.streamer.Connect(); err != nil {
					level := sh.logger.Warn
					if errors.Is(err, streamer.ErrSessionActive) {
						level = sh.logger.Info
					}
					level("msg", "Reconnect not started",
						"component", "signal",
						"error", err)
				}
			case syscall.SIGUSR1:
				logStreamerStatus(sh.streamer.GetStats())
			default:
				return sig
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop releases signal registration
func (sh *SignalHandler) Stop() {
	signal.Stop(sh.sigChan)
}
