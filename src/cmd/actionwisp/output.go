// FILE: actionwisp/src/cmd/actionwisp/output.go
package main

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// OutputHandler writes user-facing console messages, silenced in quiet mode
type OutputHandler struct {
	quiet  bool
	mu     sync.RWMutex
	stdout io.Writer
	stderr io.Writer
}

var output = &OutputHandler{stdout: os.Stdout, stderr: os.Stderr}

// InitOutputHandler sets quiet mode for the global handler
func InitOutputHandler(quiet bool) {
	output.mu.Lock()
	defer output.mu.Unlock()
	output.quiet = quiet
}

func (o *OutputHandler) print(w io.Writer, format string, args ...any) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if !o.quiet {
		fmt.Fprintf(w, format, args...)
	}
}

// Print writes to stdout
func Print(format string, args ...any) {
	output.print(output.stdout, format, args...)
}

// Error writes to stderr
func Error(format string, args ...any) {
	output.print(output.stderr, format, args...)
}

// FatalError writes to stderr and exits with code
func FatalError(code int, format string, args ...any) {
	Error(format, args...)
	os.Exit(code)
}
