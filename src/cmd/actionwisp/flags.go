// FILE: actionwisp/src/cmd/actionwisp/flags.go
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// FlagConfig holds flags handled by the binary itself; everything else is passed to the config loader
type FlagConfig struct {
	ConfigFile  string
	ShowVersion bool
	ShowHelp    bool
	Quiet       bool
	ExitOnEOF   bool
	SaveConfig  string
	LogLevel    string
}

// ParseFlags reads binary-level flags, ignoring configuration overrides such as --coordinator.url
func ParseFlags(args []string) (*FlagConfig, error) {
	fc := &FlagConfig{}

	flagSet := pflag.NewFlagSet("actionwisp", pflag.ContinueOnError)
	flagSet.ParseErrorsWhitelist.UnknownFlags = true
	flagSet.Usage = func() { printHelp(flagSet) }

	flagSet.StringVarP(&fc.ConfigFile, "config", "c", "", "config file path")
	flagSet.BoolVar(&fc.ShowVersion, "version", false, "show version information")
	flagSet.BoolVarP(&fc.ShowHelp, "help", "h", false, "show help")
	flagSet.BoolVarP(&fc.Quiet, "quiet", "q", false, "suppress all console output")
	flagSet.BoolVar(&fc.ExitOnEOF, "exit-on-eof", false, "exit once stdin is exhausted")
	flagSet.StringVar(&fc.SaveConfig, "save-config", "", "write the effective configuration to this path and exit")
	flagSet.StringVar(&fc.LogLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			fc.ShowHelp = true
			return fc, nil
		}
		return nil, err
	}

	if fc.ShowHelp {
		printHelp(flagSet)
	}

	if fc.LogLevel != "" {
		if _, err := parseLogLevel(fc.LogLevel); err != nil {
			return nil, fmt.Errorf("invalid log-level: %s (valid: debug, info, warn, error)", fc.LogLevel)
		}
	}

	return fc, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ActionWisp - streams application state transitions to a remote devtools monitor

Reads JSON lines from stdin:
  {"init": <state>}                     start a new log
  {"action": <action>, "state": <state>} record an action and resulting state

Entries are kept in a bounded history and replayed in order whenever a
coordinator session is established.

Usage: actionwisp [options] [--section.key=value ...]

Options:
`)
	flagSet.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Configuration overrides:
  --coordinator.url=ws://host:8000/socketcluster/
  --coordinator.reconnect_delay_ms=1000
  --history.capacity=5000
  --status.enabled=true --status.port=8089

Environment Variables:
  ACTIONWISP_CONFIG_FILE              Config file path
  ACTIONWISP_CONFIG_DIR               Config directory
  ACTIONWISP_COORDINATOR_URL          Coordinator endpoint
  ACTIONWISP_DISABLE_STATUS_REPORTER  Disable periodic status reports (set to 1)
`)
}
