// FILE: actionwisp/src/internal/core/entry.go
package core

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrZeroEntry is returned when encoding an entry built without a constructor
var ErrZeroEntry = errors.New("log entry has no kind")

// Kind discriminates the two LogEntry variants
type Kind uint8

const (
	KindInit Kind = iota + 1
	KindAction
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindAction:
		return "action"
	default:
		return "unknown"
	}
}

// LogEntry is one history record: either the start of a new log carrying the
// initial state, or an action together with the state it produced.
// State and action payloads are opaque and passed through untouched.
// Entries are values and have no mutators.
type LogEntry struct {
	kind      Kind
	state     any
	action    any
	timestamp int64 // epoch milliseconds, Action only
}

// Creates an Init entry
func NewInit(initialState any) LogEntry {
	return LogEntry{
		kind:  KindInit,
		state: initialState,
	}
}

// Creates an Action entry stamped with the given time
func NewAction(action, state any, at time.Time) LogEntry {
	return LogEntry{
		kind:      KindAction,
		state:     state,
		action:    action,
		timestamp: at.UnixMilli(),
	}
}

func (e LogEntry) Kind() Kind       { return e.kind }
func (e LogEntry) State() any       { return e.state }
func (e LogEntry) Action() any      { return e.action }
func (e LogEntry) Timestamp() int64 { return e.timestamp }

// IsZero reports whether the entry was never constructed
func (e LogEntry) IsZero() bool {
	return e.kind == 0
}

// WireEntry is the JSON shape sent to the coordinator
type WireEntry struct {
	Type    string      `json:"type"`
	Payload any         `json:"payload"`
	Action  *WireAction `json:"action,omitempty"`
}

// WireAction wraps an action with its timestamp
type WireAction struct {
	Timestamp int64 `json:"timestamp"`
	Action    any   `json:"action"`
}

// Wire converts the entry to its transport representation
func (e LogEntry) Wire() (WireEntry, error) {
	switch e.kind {
	case KindInit:
		return WireEntry{
			Type:    TypeInit,
			Payload: e.state,
		}, nil
	case KindAction:
		return WireEntry{
			Type:    TypeAction,
			Payload: e.state,
			Action: &WireAction{
				Timestamp: e.timestamp,
				Action:    e.action,
			},
		}, nil
	default:
		return WireEntry{}, ErrZeroEntry
	}
}

func (e LogEntry) MarshalJSON() ([]byte, error) {
	w, err := e.Wire()
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}
