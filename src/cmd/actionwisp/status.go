// FILE: actionwisp/src/cmd/actionwisp/status.go
package main

import (
	"context"
	"os"
	"time"

	"actionwisp/src/internal/input"
	"actionwisp/src/internal/streamer"
)

// statusReporter periodically logs streamer and input status
func statusReporter(ctx context.Context, s *streamer.Streamer, in *input.Reader) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logStreamerStatus(s.GetStats())
			if in != nil {
				stats := in.GetStats()
				logger.Debug("msg", "Input status",
					"component", "status_reporter",
					"total_lines", stats.TotalLines,
					"total_inits", stats.TotalInits,
					"total_actions", stats.TotalActions,
					"total_malformed", stats.TotalMalformed)
			}
		}
	}
}

func logStreamerStatus(stats streamer.Stats) {
	fields := []any{
		"msg", "Streamer status",
		"component", "status_reporter",
		"state", stats.State,
		"coordinator", stats.Coordinator,
		"total_submitted", stats.TotalSubmitted,
		"total_emitted", stats.TotalEmitted,
		"history_length", stats.History.Length,
		"history_capacity", stats.History.Capacity,
		"history_evicted", stats.History.Evicted,
	}
	if stats.Channel != "" {
		fields = append(fields, "channel", stats.Channel)
	}
	if lastErr, _ := stats.Details["last_error"].(string); lastErr != "" {
		fields = append(fields, "last_error", lastErr)
	}
	if expiry, ok := stats.Details["token_expires_at"].(time.Time); ok {
		fields = append(fields, "token_expires_at", expiry)
	}

	logger.Info(fields...)
}

func enableStatusReporter() bool {
	return os.Getenv("ACTIONWISP_DISABLE_STATUS_REPORTER") != "1"
}
