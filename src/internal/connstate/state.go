// FILE: actionwisp/src/internal/connstate/state.go
package connstate

import (
	"errors"

	"actionwisp/src/internal/core"
	"actionwisp/src/internal/history"
)

// ErrNotConnected is returned by Replay on a Disconnected state
var ErrNotConnected = errors.New("no coordinator connection established, unable to replay history")

// Kind is the connectivity variant of a State
type Kind uint8

const (
	Disconnected Kind = iota
	Connected
)

func (k Kind) String() string {
	switch k {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Emitter publishes an event without waiting for acknowledgment
type Emitter interface {
	Emit(event string, data any) error
}

// BlockingEmitter is implemented by emitters that can wait for transport
// capacity. Replay prefers it so a snapshot larger than the outbound queue
// is delivered whole.
type BlockingEmitter interface {
	EmitWait(event string, data any) error
}

// State decides, per logged entry, whether it is only buffered or also
// emitted. A State is never mutated; transitions replace it.
type State struct {
	kind    Kind
	history *history.Buffer
	emitter Emitter
	channel string
}

// NewDisconnected wraps the shared history buffer without a transport
func NewDisconnected(buf *history.Buffer) *State {
	return &State{
		kind:    Disconnected,
		history: buf,
	}
}

// NewConnected wraps the shared history buffer and a live session.
// A nil emitter yields a Disconnected state.
func NewConnected(buf *history.Buffer, emitter Emitter, channel string) *State {
	if emitter == nil {
		return NewDisconnected(buf)
	}
	return &State{
		kind:    Connected,
		history: buf,
		emitter: emitter,
		channel: channel,
	}
}

func (s *State) Kind() Kind { return s.kind }

// Channel returns the coordinator-assigned channel, empty when disconnected
func (s *State) Channel() string { return s.channel }

// Log appends the entry to history and, when connected, emits it.
// Emission is best effort; a failed emit is left to the session's close path.
func (s *State) Log(entry core.LogEntry) core.LogEntry {
	s.history.Append(entry)

	switch s.kind {
	case Connected:
		// Failures are counted by the emitter and never reach the caller
		_ = s.emitter.Emit(core.LogEvent, entry)
	case Disconnected:
	}
	return entry
}

// Replay emits a snapshot of the whole history in order and returns the
// number of entries handed to the transport. With a BlockingEmitter it waits
// for queue space instead of dropping entries.
func (s *State) Replay() (int, error) {
	switch s.kind {
	case Connected:
		emit := s.emitter.Emit
		if be, ok := s.emitter.(BlockingEmitter); ok {
			emit = be.EmitWait
		}

		sent := 0
		for _, entry := range s.history.Snapshot() {
			if err := emit(core.LogEvent, entry); err == nil {
				sent++
			}
		}
		return sent, nil
	case Disconnected:
		return 0, ErrNotConnected
	default:
		return 0, ErrNotConnected
	}
}
