package exec

import (
	"sync"
	"time"
)

// HistoryEntry records one completed round.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Instruction string    `json:"instruction"`
	Executed    bool      `json:"executed"`
	Command     string    `json:"command"`
	Output      string    `json:"output"`
	Analysis    string    `json:"analysis"`
}

// History is a fixed-capacity log of rounds, most recent first. When full,
// pushing evicts the oldest entry.
type History struct {
	mu       sync.RWMutex
	capacity int
	entries  []HistoryEntry
}

// NewHistory creates a history holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity, entries: make([]HistoryEntry, 0, capacity)}
}

// Push records e as the most recent entry.
func (h *History) Push(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.entries) < h.capacity {
		h.entries = append(h.entries, HistoryEntry{})
	}
	copy(h.entries[1:], h.entries)
	h.entries[0] = e
}

// Entries returns a copy of the entries, most recent first.
func (h *History) Entries() []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]HistoryEntry(nil), h.entries...)
}

// Len returns the number of entries.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Capacity returns the maximum number of entries.
func (h *History) Capacity() int {
	return h.capacity
}
