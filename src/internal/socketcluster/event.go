// FILE: actionwisp/src/internal/socketcluster/event.go
package socketcluster

import "encoding/json"

// Event is a lifecycle notification pushed by the client to its owner.
// Every Connect call produces at most one Established and exactly one Closed.
type Event interface {
	isEvent()
}

// Established follows a completed handshake, login and subscribe
type Established struct {
	Session *Session
	Channel string
}

// Closed reports the end of a connection attempt or session.
// Session is nil when the connection was never opened; Err is nil on a local Close.
type Closed struct {
	Session *Session
	Err     error
}

// Message carries an inbound payload on the subscribed channel, unmodified
type Message struct {
	Channel string
	Data    json.RawMessage
}

func (Established) isEvent() {}
func (Closed) isEvent()      {}
func (Message) isEvent()     {}
