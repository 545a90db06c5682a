// FILE: actionwisp/src/cmd/actionwisp/flags_test.go
package main

import (
	"testing"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	fc, err := ParseFlags([]string{
		"--config", "/tmp/aw.toml",
		"-q",
		"--exit-on-eof",
		"--coordinator.url=ws://remote:8000/socketcluster/",
		"--log-level", "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/aw.toml", fc.ConfigFile)
	assert.True(t, fc.Quiet)
	assert.True(t, fc.ExitOnEOF)
	assert.Equal(t, "debug", fc.LogLevel)
	assert.False(t, fc.ShowVersion)
}

func TestParseFlags_InvalidLogLevel(t *testing.T) {
	_, err := ParseFlags([]string{"--log-level", "verbose"})
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"debug", log.LevelDebug},
		{"INFO", log.LevelInfo},
		{"warning", log.LevelWarn},
		{"error", log.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLogLevel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := parseLogLevel("trace")
	assert.Error(t, err)
}
