// FILE: actionwisp/src/internal/core/entry_test.go
package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogEntry_Wire(t *testing.T) {
	t.Run("Init", func(t *testing.T) {
		entry := NewInit(map[string]any{"todos": []any{}})

		data, err := json.Marshal(entry)
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"INIT","payload":{"todos":[]}}`, string(data))
		assert.Equal(t, KindInit, entry.Kind())
		assert.Zero(t, entry.Timestamp())
	})

	t.Run("Action", func(t *testing.T) {
		at := time.UnixMilli(1700000000123)
		entry := NewAction(map[string]any{"type": "ADD_TODO"}, map[string]any{"todos": []any{1}}, at)

		data, err := json.Marshal(entry)
		require.NoError(t, err)
		assert.JSONEq(t,
			`{"type":"ACTION","payload":{"todos":[1]},"action":{"timestamp":1700000000123,"action":{"type":"ADD_TODO"}}}`,
			string(data))
		assert.Equal(t, KindAction, entry.Kind())
		assert.Equal(t, int64(1700000000123), entry.Timestamp())
	})

	t.Run("ZeroValue", func(t *testing.T) {
		var entry LogEntry
		assert.True(t, entry.IsZero())
		assert.False(t, NewInit(nil).IsZero())
		assert.Equal(t, "unknown", entry.Kind().String())

		_, err := entry.Wire()
		assert.ErrorIs(t, err, ErrZeroEntry)
		_, err = json.Marshal(entry)
		assert.ErrorIs(t, err, ErrZeroEntry)
	})
}
