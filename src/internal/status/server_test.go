// FILE: actionwisp/src/internal/status/server_test.go
package status

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"actionwisp/src/internal/config"
	"actionwisp/src/internal/streamer"
	"actionwisp/src/internal/version"

	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type fixedStats struct {
	stats streamer.Stats
}

func (f fixedStats) GetStats() streamer.Stats {
	return f.stats
}

func startServer(t *testing.T) *Server {
	t.Helper()

	cfg := &config.StatusConfig{Enabled: true, Host: "127.0.0.1", Port: 0, Path: "/status"}
	source := fixedStats{stats: streamer.Stats{
		State:          "connected",
		Channel:        "respond",
		Coordinator:    "ws://localhost:8000/socketcluster/",
		TotalSubmitted: 7,
		TotalEmitted:   5,
		History:        streamer.HistoryStats{Length: 7, Capacity: 1000},
		Details:        map[string]any{"total_replays": 1},
	}}

	srv := NewServer(cfg, source, log.NewLogger())
	require.NoError(t, srv.Start(context.Background()))
	t.Cleanup(srv.Stop)
	return srv
}

func TestServer_Status(t *testing.T) {
	srv := startServer(t)

	code, body, err := fasthttp.Get(nil, "http://"+srv.Addr()+"/status")
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusOK, code)

	var got struct {
		Service  string         `json:"service"`
		Version  string         `json:"version"`
		Streamer streamer.Stats `json:"streamer"`
	}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, version.Name, got.Service)
	assert.Equal(t, version.Short(), got.Version)
	assert.Equal(t, "connected", got.Streamer.State)
	assert.Equal(t, "respond", got.Streamer.Channel)
	assert.Equal(t, uint64(7), got.Streamer.TotalSubmitted)
	assert.Equal(t, 1000, got.Streamer.History.Capacity)
}

func TestServer_NotFound(t *testing.T) {
	srv := startServer(t)

	code, body, err := fasthttp.Get(nil, "http://"+srv.Addr()+"/stream")
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusNotFound, code)
	assert.Contains(t, string(body), "Not Found")
}

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := startServer(t)

	code, _, err := fasthttp.Post(nil, "http://"+srv.Addr()+"/status", nil)
	require.NoError(t, err)
	assert.Equal(t, fasthttp.StatusMethodNotAllowed, code)
}

func TestServer_StopIdempotent(t *testing.T) {
	srv := startServer(t)
	srv.Stop()
	srv.Stop()

	_, _, err := fasthttp.Get(nil, "http://"+srv.Addr()+"/status")
	assert.Error(t, err)
}

func TestServer_StopRightAfterStart(t *testing.T) {
	for range 20 {
		cfg := &config.StatusConfig{Enabled: true, Host: "127.0.0.1", Port: 0, Path: "/status"}
		srv := NewServer(cfg, fixedStats{}, log.NewLogger())
		require.NoError(t, srv.Start(context.Background()))

		done := make(chan struct{})
		go func() {
			srv.Stop()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("Stop did not return")
		}
	}
}

func TestServer_StopsOnContextCancel(t *testing.T) {
	cfg := &config.StatusConfig{Enabled: true, Host: "127.0.0.1", Port: 0, Path: "/status"}
	srv := NewServer(cfg, fixedStats{}, log.NewLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, srv.Start(ctx))
	addr := srv.Addr()

	cancel()
	assert.Eventually(t, func() bool {
		_, _, err := fasthttp.Get(nil, "http://"+addr+"/status")
		return err != nil
	}, 5*time.Second, 20*time.Millisecond)

	srv.Stop()
}
