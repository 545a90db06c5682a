// FILE: actionwisp/src/internal/socketcluster/client_test.go
package socketcluster

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"actionwisp/src/internal/config"
	"actionwisp/src/internal/core"
	"actionwisp/src/internal/socketcluster/sctest"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lixenwraith/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 5 * time.Second

func newTestLogger() *log.Logger {
	return log.NewLogger()
}

func newTestClient(t *testing.T, url string, mutate ...func(*config.CoordinatorConfig)) *Client {
	t.Helper()

	cfg := config.DefaultCoordinatorConfig()
	cfg.URL = url
	cfg.DialTimeoutMS = 2000
	cfg.AckTimeoutMS = 2000
	for _, m := range mutate {
		m(cfg)
	}

	client, err := NewClient(cfg, newTestLogger())
	require.NoError(t, err)
	return client
}

func connect(t *testing.T, client *Client) (chan Event, context.CancelFunc) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	events := make(chan Event, 64)
	client.Connect(ctx, events)
	return events, cancel
}

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()

	select {
	case ev := <-events:
		return ev
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for client event")
		return nil
	}
}

func expectEstablished(t *testing.T, events <-chan Event) Established {
	t.Helper()

	ev := nextEvent(t, events)
	est, ok := ev.(Established)
	require.True(t, ok, "expected Established, got %T (%+v)", ev, ev)
	return est
}

func expectClosed(t *testing.T, events <-chan Event) Closed {
	t.Helper()

	for {
		ev := nextEvent(t, events)
		if closed, ok := ev.(Closed); ok {
			return closed
		}
	}
}

func TestClient_Handshake(t *testing.T) {
	coord := sctest.NewCoordinator(t, sctest.Options{Channel: "respond"})
	client := newTestClient(t, coord.URL)
	events, _ := connect(t, client)

	est := expectEstablished(t, events)
	assert.Equal(t, "respond", est.Channel)
	require.NotNil(t, est.Session)
	assert.Equal(t, "respond", est.Session.Channel())
	assert.Equal(t, "sctest-socket", est.Session.SocketID())
	assert.NotEmpty(t, est.Session.ID())

	hs := coord.WaitFrame(t, "#handshake", waitTimeout)
	require.NotNil(t, hs.Cid)
	assert.JSONEq(t, `{"authToken":null}`, string(hs.Data))

	login := coord.WaitFrame(t, core.LoginEvent, waitTimeout)
	require.NotNil(t, login.Cid)
	assert.JSONEq(t, `"master"`, string(login.Data))

	sub := coord.WaitFrame(t, "#subscribe", waitTimeout)
	assert.JSONEq(t, `{"channel":"respond"}`, string(sub.Data))

	assert.Less(t, *hs.Cid, *login.Cid)
}

func TestClient_HandshakeFailures(t *testing.T) {
	tests := []struct {
		name    string
		opts    sctest.Options
		mutate  func(*config.CoordinatorConfig)
		stage   Stage
		wantErr error
	}{
		{
			name:    "already authenticated",
			opts:    sctest.Options{Authenticated: true},
			stage:   StageHandshake,
			wantErr: ErrAuthRejected,
		},
		{
			name:    "login rejected",
			opts:    sctest.Options{LoginError: "bad role"},
			stage:   StageLogin,
			wantErr: ErrLoginRejected,
		},
		{
			name:    "subscribe rejected",
			opts:    sctest.Options{SubscribeError: "no such channel"},
			stage:   StageSubscribe,
			wantErr: ErrSubscribeFailed,
		},
		{
			name:    "handshake never acknowledged",
			opts:    sctest.Options{SilentHandshake: true},
			mutate:  func(c *config.CoordinatorConfig) { c.AckTimeoutMS = 100 },
			stage:   StageHandshake,
			wantErr: ErrAckTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coord := sctest.NewCoordinator(t, tt.opts)
			var mutate []func(*config.CoordinatorConfig)
			if tt.mutate != nil {
				mutate = append(mutate, tt.mutate)
			}
			client := newTestClient(t, coord.URL, mutate...)
			events, _ := connect(t, client)

			ev := nextEvent(t, events)
			closed, ok := ev.(Closed)
			require.True(t, ok, "expected Closed, got %T", ev)
			require.Error(t, closed.Err)
			assert.ErrorIs(t, closed.Err, tt.wantErr)

			var te *TransportError
			require.ErrorAs(t, closed.Err, &te)
			assert.Equal(t, tt.stage, te.Stage)

			require.NotNil(t, closed.Session)
			assert.ErrorIs(t, closed.Session.Emit(core.LogEvent, "late"), ErrSessionClosed)
		})
	}
}

func TestClient_ConnectRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	client := newTestClient(t, "ws://"+addr+"/socketcluster/")
	events, _ := connect(t, client)

	closed := expectClosed(t, events)
	assert.Nil(t, closed.Session)

	var te *TransportError
	require.ErrorAs(t, closed.Err, &te)
	assert.Equal(t, StageConnect, te.Stage)
}

func TestSession_Emit(t *testing.T) {
	coord := sctest.NewCoordinator(t, sctest.Options{})
	client := newTestClient(t, coord.URL)
	events, _ := connect(t, client)
	est := expectEstablished(t, events)

	entry := core.NewAction(map[string]any{"type": "ADD"}, map[string]any{"n": 1}, time.UnixMilli(1700000000000))
	require.NoError(t, est.Session.Emit(core.LogEvent, entry))

	f := coord.WaitFrame(t, core.LogEvent, waitTimeout)
	assert.Nil(t, f.Cid, "fire-and-forget frames carry no call id")
	assert.JSONEq(t,
		`{"type":"ACTION","payload":{"n":1},"action":{"timestamp":1700000000000,"action":{"type":"ADD"}}}`,
		string(f.Data))

	assert.Eventually(t, func() bool { return est.Session.FramesSent() >= 4 }, waitTimeout, 10*time.Millisecond)
}

func TestSession_EmitOrderWithRateLimit(t *testing.T) {
	coord := sctest.NewCoordinator(t, sctest.Options{})
	client := newTestClient(t, coord.URL, func(c *config.CoordinatorConfig) {
		c.EmitRate = 200
		c.EmitBurst = 1
	})
	events, _ := connect(t, client)
	est := expectEstablished(t, events)

	start := time.Now()
	for i := range 10 {
		require.NoError(t, est.Session.Emit(core.LogEvent, i))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond, "emit must not wait on the limiter")

	frames := coord.WaitFrames(t, core.LogEvent, 10, waitTimeout)
	for i, f := range frames {
		var n int
		require.NoError(t, json.Unmarshal(f.Data, &n))
		assert.Equal(t, i, n)
	}
}

func TestSession_QueueFull(t *testing.T) {
	coord := sctest.NewCoordinator(t, sctest.Options{})
	client := newTestClient(t, coord.URL, func(c *config.CoordinatorConfig) {
		c.QueueSize = 1
		c.EmitRate = 0.5
		c.EmitBurst = 3
	})
	events, _ := connect(t, client)
	est := expectEstablished(t, events)

	// Burst is spent by the handshake, so the writer parks on the limiter
	var dropped int
	for range 10 {
		if errors.Is(est.Session.Emit(core.LogEvent, "x"), ErrQueueFull) {
			dropped++
		}
	}
	assert.Greater(t, dropped, 0)
	assert.Equal(t, uint64(dropped), est.Session.FramesDropped())
}

func TestSession_EmitWait(t *testing.T) {
	coord := sctest.NewCoordinator(t, sctest.Options{})
	client := newTestClient(t, coord.URL, func(c *config.CoordinatorConfig) {
		c.QueueSize = 1
		c.EmitRate = 500
		c.EmitBurst = 1
	})
	events, _ := connect(t, client)
	est := expectEstablished(t, events)

	for i := range 20 {
		require.NoError(t, est.Session.EmitWait(core.LogEvent, i))
	}
	assert.Zero(t, est.Session.FramesDropped())

	frames := coord.WaitFrames(t, core.LogEvent, 20, waitTimeout)
	for i, f := range frames {
		var n int
		require.NoError(t, json.Unmarshal(f.Data, &n))
		assert.Equal(t, i, n)
	}

	est.Session.Close()
	expectClosed(t, events)
	assert.ErrorIs(t, est.Session.EmitWait(core.LogEvent, "late"), ErrSessionClosed)
}

func TestSession_MessageForwarding(t *testing.T) {
	coord := sctest.NewCoordinator(t, sctest.Options{Channel: "respond"})
	client := newTestClient(t, coord.URL)
	events, _ := connect(t, client)
	est := expectEstablished(t, events)

	coord.Publish("other", map[string]any{"type": "IGNORED"})
	coord.Publish("respond", map[string]any{"type": "DISPATCH", "action": "{}"})
	coord.Send("respond", map[string]any{"type": "START"})

	ev := nextEvent(t, events)
	msg, ok := ev.(Message)
	require.True(t, ok, "expected Message, got %T", ev)
	assert.Equal(t, "respond", msg.Channel)
	assert.JSONEq(t, `{"type":"DISPATCH","action":"{}"}`, string(msg.Data))

	ev = nextEvent(t, events)
	msg, ok = ev.(Message)
	require.True(t, ok, "expected Message, got %T", ev)
	assert.JSONEq(t, `{"type":"START"}`, string(msg.Data))

	assert.Equal(t, uint64(2), est.Session.MessagesReceived())
}

func TestSession_Heartbeat(t *testing.T) {
	coord := sctest.NewCoordinator(t, sctest.Options{})
	client := newTestClient(t, coord.URL)
	events, _ := connect(t, client)
	expectEstablished(t, events)

	coord.Ping()
	assert.Equal(t, "#2", coord.WaitPong(t, waitTimeout))
}

func TestSession_AuthToken(t *testing.T) {
	coord := sctest.NewCoordinator(t, sctest.Options{})
	client := newTestClient(t, coord.URL)
	events, _ := connect(t, client)
	est := expectEstablished(t, events)

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "master",
		"exp": expiry.Unix(),
	}).SignedString([]byte("coordinator-secret"))
	require.NoError(t, err)

	coord.Send("#setAuthToken", map[string]any{"token": signed})
	require.Eventually(t, func() bool { return est.Session.AuthToken() != nil }, waitTimeout, 10*time.Millisecond)

	tok := est.Session.AuthToken()
	assert.True(t, tok.Signed)
	assert.Equal(t, "master", tok.Subject)
	assert.True(t, tok.ExpiresAt.Equal(expiry))
	assert.False(t, tok.Expired(time.Now()))
	assert.True(t, tok.Expired(expiry.Add(time.Minute)))

	coord.Send("#removeAuthToken", nil)
	assert.Eventually(t, func() bool { return est.Session.AuthToken() == nil }, waitTimeout, 10*time.Millisecond)
}

func TestSession_RemoteDrop(t *testing.T) {
	coord := sctest.NewCoordinator(t, sctest.Options{})
	client := newTestClient(t, coord.URL)
	events, _ := connect(t, client)
	est := expectEstablished(t, events)

	coord.DropAll()
	assert.Zero(t, coord.Connections())

	closed := expectClosed(t, events)
	assert.Same(t, est.Session, closed.Session)
	assert.ErrorIs(t, est.Session.Emit(core.LogEvent, "late"), ErrSessionClosed)
	require.Error(t, closed.Err)

	var te *TransportError
	require.ErrorAs(t, closed.Err, &te)
	assert.Equal(t, StageSession, te.Stage)
}

func TestSession_LocalClose(t *testing.T) {
	coord := sctest.NewCoordinator(t, sctest.Options{})
	client := newTestClient(t, coord.URL)
	events, _ := connect(t, client)
	est := expectEstablished(t, events)

	est.Session.Close()

	closed := expectClosed(t, events)
	assert.NoError(t, closed.Err)
	assert.ErrorIs(t, est.Session.Emit(core.LogEvent, "late"), ErrSessionClosed)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event after Closed: %T", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestClient_ContextCancel(t *testing.T) {
	coord := sctest.NewCoordinator(t, sctest.Options{})
	client := newTestClient(t, coord.URL)
	events, cancel := connect(t, client)
	est := expectEstablished(t, events)

	cancel()

	select {
	case <-est.Session.Done():
	case <-time.After(waitTimeout):
		t.Fatal("session not closed after context cancel")
	}
}

func TestNewClient_InvalidURL(t *testing.T) {
	cfg := config.DefaultCoordinatorConfig()
	cfg.URL = "http://localhost:8000"

	_, err := NewClient(cfg, newTestLogger())
	assert.Error(t, err)
}

func TestParseAuthToken_Unsigned(t *testing.T) {
	tok, err := parseAuthToken(json.RawMessage(`{"username":"master"}`))
	require.NoError(t, err)
	assert.False(t, tok.Signed)
	assert.Equal(t, "master", tok.Claims["username"])
	assert.False(t, tok.Expired(time.Now()))

	_, err = parseAuthToken(json.RawMessage(`"not-a-jwt"`))
	assert.Error(t, err)
}
