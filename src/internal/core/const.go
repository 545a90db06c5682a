// FILE: actionwisp/src/internal/core/const.go
package core

// Coordinator defaults
const (
	DefaultEndpoint        = "ws://localhost:8000/socketcluster/"
	DefaultHistoryCapacity = 1000
)

// Event names and the fixed login role understood by the coordinator
const (
	LogEvent   = "log-noid"
	LoginEvent = "login"
	MasterRole = "master"
)

// Values of the "type" field on the wire
const (
	TypeInit   = "INIT"
	TypeAction = "ACTION"
)
