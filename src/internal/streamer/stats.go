// FILE: actionwisp/src/internal/streamer/stats.go
package streamer

import (
	"time"
)

// Stats is a point-in-time view of the streamer
type Stats struct {
	State          string         `json:"state"`
	Channel        string         `json:"channel,omitempty"`
	Coordinator    string         `json:"coordinator"`
	StartTime      time.Time      `json:"start_time"`
	TotalSubmitted uint64         `json:"total_submitted"`
	TotalEmitted   uint64         `json:"total_emitted"`
	History        HistoryStats   `json:"history"`
	Details        map[string]any `json:"details"`
}

// HistoryStats describes the replay buffer
type HistoryStats struct {
	Length   int    `json:"length"`
	Capacity int    `json:"capacity"`
	Evicted  uint64 `json:"evicted"`
}

// GetStats returns current counters and connection details
func (s *Streamer) GetStats() Stats {
	state := s.state.Load()
	lastErr, _ := s.lastError.Load().(string)
	connectedAt, _ := s.connectedAt.Load().(time.Time)

	var uptime time.Duration
	if !connectedAt.IsZero() {
		uptime = time.Since(connectedAt)
	}

	details := map[string]any{
		"connecting":        s.active.Load() && s.session.Load() == nil,
		"reconnect_enabled": s.config.ReconnectDelayMS > 0,
		"total_emit_failed": s.totalEmitFailed.Load(),
		"total_replays":     s.totalReplays.Load(),
		"total_replayed":    s.totalReplayed.Load(),
		"total_connects":    s.totalConnects.Load(),
		"total_closes":      s.totalCloses.Load(),
		"total_messages":    s.totalMessages.Load(),
		"connection_uptime": uptime.Seconds(),
		"last_error":        lastErr,
	}

	if sess := s.session.Load(); sess != nil {
		details["session_id"] = sess.ID()
		details["socket_id"] = sess.SocketID()
		details["frames_sent"] = sess.FramesSent()
		details["frames_dropped"] = sess.FramesDropped()
		if tok := sess.AuthToken(); tok != nil && !tok.ExpiresAt.IsZero() {
			details["token_expires_at"] = tok.ExpiresAt
		}
	}

	return Stats{
		State:          state.Kind().String(),
		Channel:        state.Channel(),
		Coordinator:    s.client.URL(),
		StartTime:      s.startTime,
		TotalSubmitted: s.totalSubmitted.Load(),
		TotalEmitted:   s.totalEmitted.Load(),
		History: HistoryStats{
			Length:   s.buffer.Len(),
			Capacity: s.buffer.Cap(),
			Evicted:  s.buffer.Evicted(),
		},
		Details: details,
	}
}
