// FILE: actionwisp/src/internal/socketcluster/session.go
package socketcluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"actionwisp/src/internal/config"
	"actionwisp/src/internal/core"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"github.com/lixenwraith/log"
	"golang.org/x/time/rate"
)

// Session is one live WebSocket connection to the coordinator
type Session struct {
	id       string
	conn     *websocket.Conn
	config   *config.CoordinatorConfig
	logger   *log.Logger
	deliver  func(Event)
	limiter  *rate.Limiter
	outbound chan []byte
	control  chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error

	nextCid   atomic.Int64
	pendingMu sync.Mutex
	pending   map[int64]chan ackResult

	channel     atomic.Pointer[string]
	socketID    atomic.Pointer[string]
	authToken   atomic.Pointer[AuthToken]
	readTimeout atomic.Int64 // nanoseconds

	connectedAt time.Time

	// Statistics
	framesSent     atomic.Uint64
	framesDropped  atomic.Uint64
	framesReceived atomic.Uint64
	messagesIn     atomic.Uint64
}

type ackResult struct {
	data json.RawMessage
	err  error
}

func newSession(parent context.Context, conn *websocket.Conn, cfg *config.CoordinatorConfig, logger *log.Logger, deliver func(Event)) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:          uuid.NewString(),
		conn:        conn,
		config:      cfg,
		logger:      logger,
		deliver:     deliver,
		outbound:    make(chan []byte, max(cfg.QueueSize, 1)),
		control:     make(chan []byte, 8),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		pending:     make(map[int64]chan ackResult),
		connectedAt: time.Now(),
	}
	if cfg.EmitRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.EmitRate), max(int(cfg.EmitBurst), 1))
	}
	s.readTimeout.Store(int64(time.Duration(cfg.PingTimeoutMS) * time.Millisecond))
	return s
}

func (s *Session) start() {
	s.wg.Add(2)
	go s.readLoop()
	go s.writeLoop()
}

// ID returns the local session identifier
func (s *Session) ID() string {
	return s.id
}

// SocketID returns the identifier assigned by the coordinator during handshake
func (s *Session) SocketID() string {
	if id := s.socketID.Load(); id != nil {
		return *id
	}
	return ""
}

// Channel returns the channel name granted at login
func (s *Session) Channel() string {
	if ch := s.channel.Load(); ch != nil {
		return *ch
	}
	return ""
}

// AuthToken returns the last token pushed by the coordinator, or nil
func (s *Session) AuthToken() *AuthToken {
	return s.authToken.Load()
}

// ConnectedAt returns when the WebSocket connection was opened
func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

// FramesSent returns the number of frames written to the socket
func (s *Session) FramesSent() uint64 {
	return s.framesSent.Load()
}

// FramesDropped returns the number of frames discarded on a full queue
func (s *Session) FramesDropped() uint64 {
	return s.framesDropped.Load()
}

// MessagesReceived returns the number of channel messages forwarded to the owner
func (s *Session) MessagesReceived() uint64 {
	return s.messagesIn.Load()
}

// Done is closed once the session has ended
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the reason the session ended, nil for a local Close
func (s *Session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Emit queues a fire-and-forget event. It never blocks and never waits for an acknowledgment.
func (s *Session) Emit(event string, data any) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	frame, err := encodeFrame(event, data, 0)
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", event, err)
	}
	return s.enqueue(frame)
}

// EmitWait queues a fire-and-forget event, waiting for queue space until the session ends
func (s *Session) EmitWait(event string, data any) error {
	frame, err := encodeFrame(event, data, 0)
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", event, err)
	}

	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.outbound <- frame:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Close performs a clean WebSocket close
func (s *Session) Close() {
	s.closeWith(nil)
}

func (s *Session) enqueue(frame []byte) error {
	select {
	case s.outbound <- frame:
		return nil
	default:
		s.framesDropped.Add(1)
		return ErrQueueFull
	}
}

func (s *Session) closeWith(err error) {
	s.closeOnce.Do(func() {
		s.errMu.Lock()
		s.err = err
		s.errMu.Unlock()

		close(s.done)
		s.cancel()

		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = s.conn.Close()

		if err != nil {
			s.logger.Debug("msg", "Coordinator session closed",
				"component", "socketcluster",
				"session_id", s.id,
				"error", err)
		}
	})
}

func (s *Session) wait() {
	s.wg.Wait()
}

func (s *Session) writeLoop() {
	defer s.wg.Done()

	writeTimeout := time.Duration(s.config.WriteTimeoutMS) * time.Millisecond
	write := func(frame []byte) bool {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			s.closeWith(stageError(StageSession, fmt.Errorf("write failed: %w", err)))
			return false
		}
		return true
	}

	for {
		// Heartbeats are not paced
		select {
		case frame := <-s.control:
			if !write(frame) {
				return
			}
			continue
		default:
		}

		select {
		case <-s.done:
			return
		case frame := <-s.control:
			if !write(frame) {
				return
			}
		case frame := <-s.outbound:
			if s.limiter != nil {
				if err := s.limiter.Wait(s.ctx); err != nil {
					return
				}
			}
			if !write(frame) {
				return
			}
			s.framesSent.Add(1)
		}
	}
}

func (s *Session) readLoop() {
	defer s.wg.Done()

	for {
		_ = s.conn.SetReadDeadline(time.Now().Add(time.Duration(s.readTimeout.Load())))
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.closeWith(stageError(StageSession, readError(err)))
			return
		}
		s.framesReceived.Add(1)
		s.handleFrame(data)
	}
}

func readError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return fmt.Errorf("%w by coordinator: %v", ErrSessionClosed, err)
	}
	return fmt.Errorf("read failed: %w", err)
}

func (s *Session) handleFrame(data []byte) {
	switch string(data) {
	case string(pingFrame):
		s.sendControl(pongFrame)
		return
	case string(legacyPingFrame):
		s.sendControl(legacyPongFrame)
		return
	case "":
		return
	}

	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.logger.Debug("msg", "Discarding malformed frame",
			"component", "socketcluster",
			"session_id", s.id,
			"error", err)
		return
	}

	if frame.Rid != nil {
		s.resolve(*frame.Rid, frame)
		return
	}

	switch frame.Event {
	case eventPublish:
		var pub publishData
		if err := json.Unmarshal(frame.Data, &pub); err != nil {
			s.logger.Debug("msg", "Discarding malformed publish frame",
				"component", "socketcluster",
				"error", err)
			return
		}
		s.forward(pub.Channel, pub.Data)

	case eventSetAuthToken:
		var payload authTokenData
		if err := json.Unmarshal(frame.Data, &payload); err != nil || !hasPayload(payload.Token) {
			s.logger.Warn("msg", "Ignoring auth token without payload",
				"component", "socketcluster",
				"session_id", s.id)
			return
		}
		tok, err := parseAuthToken(payload.Token)
		if err != nil {
			s.logger.Warn("msg", "Failed to decode auth token",
				"component", "socketcluster",
				"session_id", s.id,
				"error", err)
			return
		}
		s.authToken.Store(tok)
		s.logger.Debug("msg", "Auth token received",
			"component", "socketcluster",
			"session_id", s.id,
			"subject", tok.Subject,
			"expires_at", tok.ExpiresAt)

	case eventRemoveAuthToken:
		s.authToken.Store(nil)

	case eventKickOut:
		s.logger.Warn("msg", "Kicked out of channel by coordinator",
			"component", "socketcluster",
			"session_id", s.id,
			"data", string(frame.Data))

	case eventDisconnect, "":

	default:
		s.forward(frame.Event, frame.Data)
	}
}

// forward delivers payloads addressed to the subscribed channel only
func (s *Session) forward(channel string, data json.RawMessage) {
	if channel == "" || channel != s.Channel() {
		return
	}
	s.messagesIn.Add(1)
	s.deliver(Message{Channel: channel, Data: data})
}

func (s *Session) sendControl(frame []byte) {
	select {
	case s.control <- frame:
	default:
	}
}

func (s *Session) resolve(rid int64, frame inboundFrame) {
	s.pendingMu.Lock()
	ch, ok := s.pending[rid]
	delete(s.pending, rid)
	s.pendingMu.Unlock()

	if !ok {
		return
	}

	res := ackResult{data: frame.Data}
	if hasPayload(frame.Error) {
		res.err = errors.New(ackErrorText(frame.Error))
	}
	ch <- res
}

func ackErrorText(raw json.RawMessage) string {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var obj struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		if obj.Name != "" {
			return obj.Name + ": " + obj.Message
		}
		return obj.Message
	}
	return string(raw)
}

// emitAck sends an event with a call id and waits for the matching response
func (s *Session) emitAck(ctx context.Context, event string, data any) (json.RawMessage, error) {
	cid := s.nextCid.Add(1)
	frame, err := encodeFrame(event, data, cid)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", event, err)
	}

	ch := make(chan ackResult, 1)
	s.pendingMu.Lock()
	s.pending[cid] = ch
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, cid)
		s.pendingMu.Unlock()
	}()

	if err := s.enqueue(frame); err != nil {
		return nil, err
	}

	timer := time.NewTimer(time.Duration(s.config.AckTimeoutMS) * time.Millisecond)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.data, res.err
	case <-timer.C:
		return nil, fmt.Errorf("%w: %s", ErrAckTimeout, event)
	case <-s.done:
		if err := s.Err(); err != nil {
			return nil, err
		}
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// handshake runs the #handshake, login and #subscribe sequence and returns the granted channel
func (s *Session) handshake(ctx context.Context) (string, error) {
	data, err := s.emitAck(ctx, eventHandshake, handshakeRequest{})
	if err != nil {
		return "", stageError(StageHandshake, fmt.Errorf("%w: %w", ErrHandshake, err))
	}

	var resp handshakeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", stageError(StageHandshake, fmt.Errorf("%w: malformed response: %w", ErrHandshake, err))
	}
	if resp.IsAuthenticated {
		return "", stageError(StageHandshake, ErrAuthRejected)
	}
	s.socketID.Store(&resp.ID)
	if resp.PingTimeout > 0 {
		s.readTimeout.Store(int64(time.Duration(resp.PingTimeout) * time.Millisecond))
	}

	s.logger.Debug("msg", "Handshake acknowledged, logging in",
		"component", "socketcluster",
		"session_id", s.id,
		"socket_id", resp.ID,
		"ping_timeout_ms", resp.PingTimeout)

	data, err = s.emitAck(ctx, core.LoginEvent, core.MasterRole)
	if err != nil {
		return "", stageError(StageLogin, fmt.Errorf("%w: %w", ErrLoginRejected, err))
	}

	var channel string
	if err := json.Unmarshal(data, &channel); err != nil || channel == "" {
		return "", stageError(StageLogin, ErrEmptyChannel)
	}

	// Set before subscribing so frames following the ack are routed
	s.channel.Store(&channel)

	if _, err := s.emitAck(ctx, eventSubscribe, channelRequest{Channel: channel}); err != nil {
		return "", stageError(StageSubscribe, fmt.Errorf("%w: %w", ErrSubscribeFailed, err))
	}

	return channel, nil
}
