// FILE: actionwisp/src/internal/input/reader.go
package input

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"actionwisp/src/internal/core"

	"github.com/lixenwraith/log"
)

var errUnknownRecord = errors.New("record needs an \"init\" key or an \"action\" and \"state\" pair")

// Sink receives decoded records
type Sink interface {
	StartNewLog(initialState any) core.LogEntry
	Submit(action, state any) core.LogEntry
}

// Reader turns JSON lines into log submissions.
// A line is either {"init": <state>} or {"action": <action>, "state": <state>}.
type Reader struct {
	source io.Reader
	sink   Sink
	logger *log.Logger

	totalLines     atomic.Uint64
	totalInits     atomic.Uint64
	totalActions   atomic.Uint64
	totalMalformed atomic.Uint64
	lastRecordTime atomic.Value // time.Time
}

// Stats summarizes the records consumed so far
type Stats struct {
	TotalLines     uint64
	TotalInits     uint64
	TotalActions   uint64
	TotalMalformed uint64
	LastRecordTime time.Time
}

type record struct {
	Init   json.RawMessage `json:"init"`
	Action json.RawMessage `json:"action"`
	State  json.RawMessage `json:"state"`
}

// NewReader creates a reader over source
func NewReader(source io.Reader, sink Sink, logger *log.Logger) *Reader {
	r := &Reader{
		source: source,
		sink:   sink,
		logger: logger,
	}
	r.lastRecordTime.Store(time.Time{})
	return r
}

// Run consumes lines until EOF, a read error, or ctx cancellation.
// Malformed lines are logged and skipped.
func (r *Reader) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(r.source)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		r.totalLines.Add(1)

		if err := r.dispatch(line); err != nil {
			r.totalMalformed.Add(1)
			r.logger.Warn("msg", "Skipping malformed input line",
				"component", "input",
				"line", r.totalLines.Load(),
				"error", err)
		}
	}

	if err := scanner.Err(); err != nil {
		r.logger.Error("msg", "Scanner error reading input",
			"component", "input",
			"error", err)
		return fmt.Errorf("failed to read input: %w", err)
	}

	r.logger.Debug("msg", "Input reached EOF",
		"component", "input",
		"total_lines", r.totalLines.Load())
	return nil
}

func (r *Reader) dispatch(line []byte) error {
	var rec record
	if err := json.Unmarshal(line, &rec); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	switch {
	case rec.Init != nil:
		r.sink.StartNewLog(decodeValue(rec.Init))
		r.totalInits.Add(1)
	case rec.Action != nil && rec.State != nil:
		r.sink.Submit(decodeValue(rec.Action), decodeValue(rec.State))
		r.totalActions.Add(1)
	default:
		return errUnknownRecord
	}

	r.lastRecordTime.Store(time.Now())
	return nil
}

// decodeValue keeps payloads as raw JSON so they are forwarded unmodified
func decodeValue(raw json.RawMessage) any {
	return json.RawMessage(bytes.Clone(raw))
}

// GetStats returns input counters
func (r *Reader) GetStats() Stats {
	last, _ := r.lastRecordTime.Load().(time.Time)
	return Stats{
		TotalLines:     r.totalLines.Load(),
		TotalInits:     r.totalInits.Load(),
		TotalActions:   r.totalActions.Load(),
		TotalMalformed: r.totalMalformed.Load(),
		LastRecordTime: last,
	}
}
