package logging

import (
	"sync"
	"time"
)

// Entry is one log record kept in the History.
type Entry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// History keeps the most recent log entries in a fixed-size ring.
type History struct {
	mu      sync.RWMutex
	entries []Entry
	next    int
	full    bool
}

// NewHistory creates a History holding at most capacity entries.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{entries: make([]Entry, capacity)}
}

// Add stores e, evicting the oldest entry when the ring is full.
func (h *History) Add(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries[h.next] = e
	h.next++
	if h.next == len(h.entries) {
		h.next = 0
		h.full = true
	}
}

// Recent returns up to n entries, oldest first. n <= 0 returns everything held.
func (h *History) Recent(n int) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var ordered []Entry
	if h.full {
		ordered = append(ordered, h.entries[h.next:]...)
	}
	ordered = append(ordered, h.entries[:h.next]...)

	if n > 0 && n < len(ordered) {
		ordered = ordered[len(ordered)-n:]
	}
	return ordered
}

// Len returns the number of entries held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.full {
		return len(h.entries)
	}
	return h.next
}
