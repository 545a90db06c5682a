// FILE: actionwisp/src/internal/streamer/streamer.go
package streamer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"actionwisp/src/internal/config"
	"actionwisp/src/internal/connstate"
	"actionwisp/src/internal/core"
	"actionwisp/src/internal/history"
	"actionwisp/src/internal/socketcluster"

	"github.com/lixenwraith/log"
)

var (
	ErrSessionActive = errors.New("coordinator session already live or connecting")
	ErrNotStarted    = errors.New("streamer not started")
	ErrStopped       = errors.New("streamer stopped")
)

// MessageHandler receives payloads published by the coordinator on the session channel
type MessageHandler func(channel string, data json.RawMessage)

// Option configures a Streamer
type Option func(*Streamer)

// WithMessageHandler installs a handler for inbound channel messages
func WithMessageHandler(h MessageHandler) Option {
	return func(s *Streamer) {
		s.handler = h
	}
}

// WithBuffer replaces the history buffer built from configuration
func WithBuffer(buf *history.Buffer) Option {
	return func(s *Streamer) {
		if buf != nil {
			s.buffer = buf
		}
	}
}

// Streamer records state transitions and forwards them to a coordinator when one is connected
type Streamer struct {
	config  *config.CoordinatorConfig
	client  *socketcluster.Client
	buffer  *history.Buffer
	state   atomic.Pointer[connstate.State]
	events  chan socketcluster.Event
	handler MessageHandler
	logger  *log.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time
	startMu   sync.Mutex
	started   atomic.Bool
	stopped   atomic.Bool

	// Set while a connection attempt or session is live
	active  atomic.Bool
	session atomic.Pointer[socketcluster.Session]

	// Owned by the event loop
	retryDelay time.Duration
	retryTimer *time.Timer

	// Statistics
	totalSubmitted  atomic.Uint64
	totalEmitted    atomic.Uint64
	totalEmitFailed atomic.Uint64
	totalReplays    atomic.Uint64
	totalReplayed   atomic.Uint64
	totalConnects   atomic.Uint64
	totalCloses     atomic.Uint64
	totalMessages   atomic.Uint64
	lastError       atomic.Value // string
	connectedAt     atomic.Value // time.Time
}

// New creates a disconnected streamer; entries submitted before Start are buffered
func New(cfg *config.Config, logger *log.Logger, opts ...Option) (*Streamer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("streamer requires a configuration")
	}

	coordinator := cfg.Coordinator
	if coordinator == nil {
		coordinator = config.DefaultCoordinatorConfig()
	}
	client, err := socketcluster.NewClient(coordinator, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create coordinator client: %w", err)
	}

	capacity := core.DefaultHistoryCapacity
	if cfg.History != nil && cfg.History.Capacity > 0 {
		capacity = int(cfg.History.Capacity)
	}

	s := &Streamer{
		config:     coordinator,
		client:     client,
		buffer:     history.New(capacity),
		events:     make(chan socketcluster.Event, 64),
		logger:     logger,
		retryDelay: time.Duration(coordinator.ReconnectDelayMS) * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.state.Store(connstate.NewDisconnected(s.buffer))
	s.lastError.Store("")
	s.connectedAt.Store(time.Time{})
	return s, nil
}

// NewStarted creates and starts a streamer, then begins a new log with initialState
func NewStarted(ctx context.Context, cfg *config.Config, logger *log.Logger, initialState any, opts ...Option) (*Streamer, error) {
	s, err := New(cfg, logger, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx); err != nil {
		return nil, err
	}
	s.StartNewLog(initialState)
	return s, nil
}

// Start launches the event loop and the first connection attempt
func (s *Streamer) Start(ctx context.Context) error {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.stopped.Load() {
		return ErrStopped
	}
	if s.started.Load() {
		return fmt.Errorf("streamer already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.startTime = time.Now()
	s.started.Store(true)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("msg", "Log streamer started",
		"component", "streamer",
		"coordinator", s.client.URL(),
		"history_capacity", s.buffer.Cap(),
		"reconnect", s.retryDelay > 0)

	if err := s.Connect(); err != nil && !errors.Is(err, ErrSessionActive) {
		return err
	}
	return nil
}

// Connect begins a new connection attempt without blocking.
// It fails with ErrSessionActive while a session is live or connecting.
func (s *Streamer) Connect() error {
	if !s.started.Load() {
		return ErrNotStarted
	}
	if s.stopped.Load() {
		return ErrStopped
	}
	if !s.active.CompareAndSwap(false, true) {
		return ErrSessionActive
	}

	s.totalConnects.Add(1)
	s.client.Connect(s.ctx, s.events)
	return nil
}

// StartNewLog records the initial state of a new log
func (s *Streamer) StartNewLog(initialState any) core.LogEntry {
	return s.log(core.NewInit(initialState))
}

// Submit records an action and the state it produced
func (s *Streamer) Submit(action, state any) core.LogEntry {
	return s.log(core.NewAction(action, state, time.Now()))
}

func (s *Streamer) log(entry core.LogEntry) core.LogEntry {
	s.totalSubmitted.Add(1)
	return s.state.Load().Log(entry)
}

// State returns the current connection state
func (s *Streamer) State() *connstate.State {
	return s.state.Load()
}

// Buffer returns the history buffer shared by every state
func (s *Streamer) Buffer() *history.Buffer {
	return s.buffer
}

// Stop closes the live session and waits for the event loop to exit
func (s *Streamer) Stop() {
	if !s.started.Load() || !s.stopped.CompareAndSwap(false, true) {
		return
	}

	s.logger.Info("msg", "Stopping log streamer", "component", "streamer")
	s.cancel()
	s.wg.Wait()

	s.state.Store(connstate.NewDisconnected(s.buffer))

	s.logger.Info("msg", "Log streamer stopped",
		"component", "streamer",
		"total_submitted", s.totalSubmitted.Load(),
		"total_emitted", s.totalEmitted.Load(),
		"total_replays", s.totalReplays.Load())
}

func (s *Streamer) run() {
	defer s.wg.Done()

	for {
		var retry <-chan time.Time
		if s.retryTimer != nil {
			retry = s.retryTimer.C
		}

		select {
		case <-s.ctx.Done():
			if s.retryTimer != nil {
				s.retryTimer.Stop()
			}
			if sess := s.session.Load(); sess != nil {
				sess.Close()
			}
			return

		case ev := <-s.events:
			s.handleEvent(ev)

		case <-retry:
			s.retryTimer = nil
			if err := s.Connect(); err != nil && !errors.Is(err, ErrSessionActive) {
				s.logger.Debug("msg", "Reconnect skipped",
					"component", "streamer",
					"error", err)
			}
		}
	}
}

func (s *Streamer) handleEvent(ev socketcluster.Event) {
	switch e := ev.(type) {
	case socketcluster.Established:
		s.onEstablished(e)
	case socketcluster.Closed:
		s.onClosed(e)
	case socketcluster.Message:
		s.onMessage(e)
	}
}

func (s *Streamer) onEstablished(e socketcluster.Established) {
	s.session.Store(e.Session)
	s.connectedAt.Store(time.Now())
	s.retryDelay = time.Duration(s.config.ReconnectDelayMS) * time.Millisecond

	state := connstate.NewConnected(s.buffer, &countingEmitter{session: e.Session, streamer: s}, e.Channel)
	s.state.Store(state)

	replayed, err := state.Replay()
	s.totalReplayed.Add(uint64(replayed))
	s.totalReplays.Add(1)
	if err != nil {
		s.logger.Warn("msg", "History replay failed",
			"component", "streamer",
			"error", err)
	}

	s.logger.Info("msg", "Connected to coordinator",
		"component", "streamer",
		"channel", e.Channel,
		"session_id", e.Session.ID(),
		"replayed", replayed)
}

func (s *Streamer) onClosed(e socketcluster.Closed) {
	s.totalCloses.Add(1)
	if e.Err != nil {
		s.lastError.Store(e.Err.Error())
	}
	s.state.Store(connstate.NewDisconnected(s.buffer))
	s.session.Store(nil)
	s.connectedAt.Store(time.Time{})
	s.active.Store(false)

	if e.Err == nil {
		s.logger.Info("msg", "Coordinator session closed", "component", "streamer")
		return
	}

	s.logger.Warn("msg", "Coordinator connection lost",
		"component", "streamer",
		"coordinator", s.client.URL(),
		"error", e.Err)

	s.scheduleReconnect()
}

func (s *Streamer) onMessage(e socketcluster.Message) {
	s.totalMessages.Add(1)
	s.logger.Debug("msg", "Message from coordinator",
		"component", "streamer",
		"channel", e.Channel,
		"data", string(e.Data))

	if s.handler != nil {
		s.handler(e.Channel, e.Data)
	}
}

func (s *Streamer) scheduleReconnect() {
	if s.config.ReconnectDelayMS <= 0 || s.stopped.Load() || s.ctx.Err() != nil {
		return
	}

	delay := s.retryDelay
	s.logger.Info("msg", "Scheduling reconnect",
		"component", "streamer",
		"retry_delay", delay)
	s.retryTimer = time.NewTimer(delay)

	// Exponential backoff
	next := time.Duration(float64(s.retryDelay) * s.config.ReconnectBackoff)
	maxDelay := time.Duration(s.config.MaxReconnectDelayMS) * time.Millisecond
	if next > maxDelay {
		next = maxDelay
	}
	s.retryDelay = next
}

// countingEmitter tracks delivery outcomes for statistics
type countingEmitter struct {
	session  *socketcluster.Session
	streamer *Streamer
}

func (c *countingEmitter) Emit(event string, data any) error {
	if err := c.session.Emit(event, data); err != nil {
		c.streamer.totalEmitFailed.Add(1)
		return err
	}
	c.streamer.totalEmitted.Add(1)
	return nil
}

// EmitWait is used by replay, which runs on the event loop and may wait for queue space
func (c *countingEmitter) EmitWait(event string, data any) error {
	if err := c.session.EmitWait(event, data); err != nil {
		c.streamer.totalEmitFailed.Add(1)
		return err
	}
	c.streamer.totalEmitted.Add(1)
	return nil
}
