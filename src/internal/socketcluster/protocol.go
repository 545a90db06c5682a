// FILE: actionwisp/src/internal/socketcluster/protocol.go
package socketcluster

import (
	"bytes"
	"encoding/json"
)

// Reserved SocketCluster events
const (
	eventHandshake       = "#handshake"
	eventSubscribe       = "#subscribe"
	eventPublish         = "#publish"
	eventSetAuthToken    = "#setAuthToken"
	eventRemoveAuthToken = "#removeAuthToken"
	eventKickOut         = "#kickOut"
	eventDisconnect      = "#disconnect"
)

// Heartbeat frames are bare strings, not JSON objects
var (
	pingFrame       = []byte("#1")
	pongFrame       = []byte("#2")
	legacyPingFrame = []byte("ping")
	legacyPongFrame = []byte("pong")
)

type outboundFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
	Cid   int64  `json:"cid,omitempty"`
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Cid   *int64          `json:"cid"`
	Rid   *int64          `json:"rid"`
	Error json.RawMessage `json:"error"`
}

type handshakeRequest struct {
	AuthToken *string `json:"authToken"`
}

type handshakeResponse struct {
	ID              string `json:"id"`
	PingTimeout     int64  `json:"pingTimeout"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

type channelRequest struct {
	Channel string `json:"channel"`
}

type publishData struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type authTokenData struct {
	Token json.RawMessage `json:"token"`
}

func encodeFrame(event string, data any, cid int64) ([]byte, error) {
	return json.Marshal(outboundFrame{Event: event, Data: data, Cid: cid})
}

// hasPayload reports whether a raw JSON field carries a non-null value
func hasPayload(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
