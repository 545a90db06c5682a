// FILE: actionwisp/src/internal/history/buffer.go
package history

import (
	"sync"
	"sync/atomic"

	"actionwisp/src/internal/core"
)

// Buffer keeps the most recent log entries in insertion order.
// When full, appending evicts the oldest entry.
type Buffer struct {
	mu      sync.RWMutex
	entries []core.LogEntry
	head    int // index of the oldest entry
	size    int

	evicted atomic.Uint64
}

// New creates a buffer holding at most capacity entries.
// A non-positive capacity selects core.DefaultHistoryCapacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = core.DefaultHistoryCapacity
	}
	return &Buffer{
		entries: make([]core.LogEntry, capacity),
	}
}

// Append stores the entry, dropping the oldest one if the buffer is full
func (b *Buffer) Append(entry core.LogEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.entries)
	if b.size == capacity {
		b.entries[b.head] = entry
		b.head = (b.head + 1) % capacity
		b.evicted.Add(1)
		return
	}

	b.entries[(b.head+b.size)%capacity] = entry
	b.size++
}

// Snapshot returns an ordered copy of the current contents.
// Entries appended while a caller iterates the copy are not reflected in it.
func (b *Buffer) Snapshot() []core.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.LogEntry, b.size)
	capacity := len(b.entries)
	n := copy(out, b.entries[b.head:min(b.head+b.size, capacity)])
	copy(out[n:], b.entries[:b.size-n])
	return out
}

// Len returns the number of buffered entries
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Cap returns the fixed capacity
func (b *Buffer) Cap() int {
	return len(b.entries)
}

// Evicted returns how many entries were dropped to make room
func (b *Buffer) Evicted() uint64 {
	return b.evicted.Load()
}
