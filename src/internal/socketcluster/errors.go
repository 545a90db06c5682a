// FILE: actionwisp/src/internal/socketcluster/errors.go
package socketcluster

import (
	"errors"
	"fmt"
)

// Stage names the point of the session lifecycle where a failure happened
type Stage string

const (
	StageConnect   Stage = "connect"
	StageHandshake Stage = "handshake"
	StageLogin     Stage = "login"
	StageSubscribe Stage = "subscribe"
	StageSession   Stage = "session"
)

var (
	ErrHandshake       = errors.New("handshake failed")
	ErrAuthRejected    = errors.New("unexpected authentication state")
	ErrLoginRejected   = errors.New("login rejected by coordinator")
	ErrEmptyChannel    = errors.New("login acknowledged without a channel name")
	ErrSubscribeFailed = errors.New("subscription rejected by coordinator")
	ErrAckTimeout      = errors.New("acknowledgment timed out")
	ErrSessionClosed   = errors.New("session closed")
	ErrQueueFull       = errors.New("outbound queue full")
)

// TransportError is the single error type reported on the closed path,
// whatever stage failed.
type TransportError struct {
	Stage Stage
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("socketcluster %s: %v", e.Stage, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func stageError(stage Stage, err error) error {
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{Stage: stage, Err: err}
}
