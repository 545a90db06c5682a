// FILE: actionwisp/src/internal/socketcluster/sctest/coordinator.go
// Package sctest provides an in-process SocketCluster coordinator for tests.
package sctest

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/valyala/fasthttp"
)

// Frame is an event frame received from a client
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Cid   *int64          `json:"cid"`
}

// Options controls how the coordinator answers the handshake sequence
type Options struct {
	Channel         string
	Authenticated   bool
	LoginError      string
	SubscribeError  string
	SilentHandshake bool
	PingTimeoutMS   int64
}

// Coordinator is a minimal remotedev-style server
type Coordinator struct {
	URL string

	opts     Options
	server   *fasthttp.Server
	listener net.Listener
	frames   chan Frame
	pongs    chan string

	mu    sync.Mutex
	conns []*peer
}

type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *peer) write(v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteJSON(v)
}

func (p *peer) writeRaw(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(websocket.TextMessage, b)
}

// NewCoordinator starts a coordinator on a loopback port, stopped on test cleanup
func NewCoordinator(t testing.TB, opts Options) *Coordinator {
	t.Helper()

	if opts.Channel == "" {
		opts.Channel = "respond"
	}
	if opts.PingTimeoutMS == 0 {
		opts.PingTimeoutMS = 20000
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	c := &Coordinator{
		URL:      fmt.Sprintf("ws://%s/socketcluster/", ln.Addr().String()),
		opts:     opts,
		listener: ln,
		frames:   make(chan Frame, 1024),
		pongs:    make(chan string, 64),
	}
	// Hijacked conns must stay ours so DropAll can close them
	c.server = &fasthttp.Server{
		Handler:           c.handle,
		Name:              "sctest",
		KeepHijackedConns: true,
	}

	go func() {
		_ = c.server.Serve(ln)
	}()

	t.Cleanup(c.Close)
	return c
}

// Close drops all clients and stops the server
func (c *Coordinator) Close() {
	c.DropAll()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = c.server.ShutdownWithContext(ctx)
}

// Channel returns the channel name granted at login
func (c *Coordinator) Channel() string {
	return c.opts.Channel
}

var upgrader = websocket.FastHTTPUpgrader{
	CheckOrigin: func(ctx *fasthttp.RequestCtx) bool { return true },
}

func (c *Coordinator) handle(ctx *fasthttp.RequestCtx) {
	_ = upgrader.Upgrade(ctx, func(conn *websocket.Conn) {
		defer conn.Close()

		p := &peer{conn: conn}
		c.mu.Lock()
		c.conns = append(c.conns, p)
		c.mu.Unlock()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}

			switch string(data) {
			case "#2", "pong":
				select {
				case c.pongs <- string(data):
				default:
				}
				continue
			}

			var f Frame
			if err := json.Unmarshal(data, &f); err != nil {
				continue
			}
			select {
			case c.frames <- f:
			default:
			}

			c.answer(p, f)
		}
	})
}

func (c *Coordinator) answer(p *peer, f Frame) {
	if f.Cid == nil {
		return
	}
	rid := *f.Cid

	switch f.Event {
	case "#handshake":
		if c.opts.SilentHandshake {
			return
		}
		_ = p.write(map[string]any{
			"rid": rid,
			"data": map[string]any{
				"id":              "sctest-socket",
				"pingTimeout":     c.opts.PingTimeoutMS,
				"isAuthenticated": c.opts.Authenticated,
			},
		})
	case "login":
		if c.opts.LoginError != "" {
			_ = p.write(map[string]any{"rid": rid, "error": c.opts.LoginError})
			return
		}
		_ = p.write(map[string]any{"rid": rid, "error": nil, "data": c.opts.Channel})
	case "#subscribe":
		if c.opts.SubscribeError != "" {
			_ = p.write(map[string]any{"rid": rid, "error": map[string]any{"name": "BrokerError", "message": c.opts.SubscribeError}})
			return
		}
		_ = p.write(map[string]any{"rid": rid})
	default:
		_ = p.write(map[string]any{"rid": rid})
	}
}

func (c *Coordinator) peers() []*peer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*peer(nil), c.conns...)
}

// Publish sends a #publish frame on channel to every client
func (c *Coordinator) Publish(channel string, data any) {
	for _, p := range c.peers() {
		_ = p.write(map[string]any{
			"event": "#publish",
			"data":  map[string]any{"channel": channel, "data": data},
		})
	}
}

// Send writes an arbitrary event frame to every client
func (c *Coordinator) Send(event string, data any) {
	for _, p := range c.peers() {
		_ = p.write(map[string]any{"event": event, "data": data})
	}
}

// Ping sends a heartbeat to every client
func (c *Coordinator) Ping() {
	for _, p := range c.peers() {
		_ = p.writeRaw([]byte("#1"))
	}
}

// DropAll closes every client connection without a close frame
func (c *Coordinator) DropAll() {
	c.mu.Lock()
	peers := c.conns
	c.conns = nil
	c.mu.Unlock()

	for _, p := range peers {
		_ = p.conn.Close()
	}
}

// Connections returns the number of clients accepted so far and still tracked
func (c *Coordinator) Connections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.conns)
}

// WaitFrame returns the next received frame for event, skipping others
func (c *Coordinator) WaitFrame(t testing.TB, event string, timeout time.Duration) Frame {
	t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case f := <-c.frames:
			if f.Event == event {
				return f
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q frame", event)
			return Frame{}
		}
	}
}

// WaitPong waits for a heartbeat reply
func (c *Coordinator) WaitPong(t testing.TB, timeout time.Duration) string {
	t.Helper()

	select {
	case p := <-c.pongs:
		return p
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for pong")
		return ""
	}
}

// WaitFrames collects the next n frames for event in arrival order
func (c *Coordinator) WaitFrames(t testing.TB, event string, n int, timeout time.Duration) []Frame {
	t.Helper()

	frames := make([]Frame, 0, n)
	for len(frames) < n {
		frames = append(frames, c.WaitFrame(t, event, timeout))
	}
	return frames
}

// NoFrame reports whether no frame for event arrives within d
func (c *Coordinator) NoFrame(event string, d time.Duration) bool {
	deadline := time.After(d)
	for {
		select {
		case f := <-c.frames:
			if f.Event == event {
				return false
			}
		case <-deadline:
			return true
		}
	}
}
