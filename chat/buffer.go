package chat

import (
	"sync"
	"time"
)

// Buffer is a fixed-capacity ring of recent messages for one channel. When
// full, the oldest message is silently evicted. Sweeps can only ever act on
// what is still buffered.
//
// Safe for concurrent use: the processing lane appends while a sweep reads.
type Buffer struct {
	mu    sync.RWMutex
	slots []Message
	next  int
	full  bool
}

func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		slots: make([]Message, capacity),
	}
}

func (b *Buffer) Append(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.slots[b.next] = msg
	b.next++
	if b.next == len(b.slots) {
		b.next = 0
		b.full = true
	}
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.full {
		return len(b.slots)
	}
	return b.next
}

// Snapshot returns buffered messages in arrival order, oldest first. The
// returned slice is a copy and safe to retain across further appends.
func (b *Buffer) Snapshot() []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.full {
		out := make([]Message, b.next)
		copy(out, b.slots[:b.next])
		return out
	}
	out := make([]Message, 0, len(b.slots))
	out = append(out, b.slots[b.next:]...)
	out = append(out, b.slots[:b.next]...)
	return out
}

// Since returns buffered messages with a timestamp at or after the cutoff,
// oldest first.
func (b *Buffer) Since(cutoff time.Time) []Message {
	all := b.Snapshot()
	for i, msg := range all {
		if !msg.Timestamp.Before(cutoff) {
			return all[i:]
		}
	}
	return nil
}
