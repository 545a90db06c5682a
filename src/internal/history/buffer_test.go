// FILE: actionwisp/src/internal/history/buffer_test.go
package history

import (
	"sync"
	"testing"
	"time"

	"actionwisp/src/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryN(n int) core.LogEntry {
	return core.NewAction(map[string]any{"n": n}, nil, time.UnixMilli(int64(n)))
}

func actionN(t *testing.T, e core.LogEntry) int {
	t.Helper()
	action, ok := e.Action().(map[string]any)
	require.True(t, ok)
	return action["n"].(int)
}

func TestNew(t *testing.T) {
	assert.Equal(t, core.DefaultHistoryCapacity, New(0).Cap())
	assert.Equal(t, core.DefaultHistoryCapacity, New(-5).Cap())
	assert.Equal(t, 3, New(3).Cap())
}

func TestBuffer_BoundedHistory(t *testing.T) {
	testCases := []struct {
		name     string
		capacity int
		appended int
	}{
		{name: "Empty", capacity: 5, appended: 0},
		{name: "PartiallyFilled", capacity: 5, appended: 3},
		{name: "ExactlyFull", capacity: 5, appended: 5},
		{name: "WrappedOnce", capacity: 5, appended: 7},
		{name: "WrappedManyTimes", capacity: 5, appended: 23},
		{name: "CapacityOne", capacity: 1, appended: 4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			buf := New(tc.capacity)
			for i := 1; i <= tc.appended; i++ {
				buf.Append(entryN(i))
			}

			want := min(tc.appended, tc.capacity)
			snap := buf.Snapshot()
			require.Len(t, snap, want)
			assert.Equal(t, want, buf.Len())

			first := tc.appended - want + 1
			for i, e := range snap {
				assert.Equal(t, first+i, actionN(t, e), "entry %d out of order", i)
			}
			assert.Equal(t, uint64(tc.appended-want), buf.Evicted())
		})
	}
}

func TestBuffer_DefaultCapacityEviction(t *testing.T) {
	buf := New(core.DefaultHistoryCapacity)
	for i := 1; i <= 1001; i++ {
		buf.Append(entryN(i))
	}

	snap := buf.Snapshot()
	require.Len(t, snap, 1000)
	assert.Equal(t, 2, actionN(t, snap[0]), "entry #1 should be evicted")
	assert.Equal(t, 1001, actionN(t, snap[999]))
}

func TestBuffer_SnapshotIsIndependent(t *testing.T) {
	buf := New(3)
	buf.Append(entryN(1))
	buf.Append(entryN(2))

	snap := buf.Snapshot()
	buf.Append(entryN(3))
	buf.Append(entryN(4))

	require.Len(t, snap, 2)
	assert.Equal(t, 1, actionN(t, snap[0]))
	assert.Equal(t, 2, actionN(t, snap[1]))
}

func TestBuffer_ConcurrentAppendAndSnapshot(t *testing.T) {
	buf := New(100)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				buf.Append(entryN(i))
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			for _, e := range buf.Snapshot() {
				assert.False(t, e.IsZero(), "snapshot exposed an unwritten slot")
			}
		}
	}()
	wg.Wait()

	assert.Equal(t, 100, buf.Len())
	assert.Equal(t, uint64(4*500-100), buf.Evicted())
}
