package router

import (
	"sync"
	"time"
)

// HistoryEntry is one location in the navigation history
type HistoryEntry struct {
	Path      string
	Timestamp time.Time
}

// History is the browser-style session history the router pushes to
type History interface {
	Push(entry HistoryEntry)
	Replace(entry HistoryEntry)
	Back() (HistoryEntry, bool)
	Forward() (HistoryEntry, bool)
	Current() (HistoryEntry, bool)
	Entries() []HistoryEntry
}

// MemoryHistory is an in-process History. Pushing after going back drops
// the forward entries.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []HistoryEntry
	index   int
}

// NewMemoryHistory returns an empty history
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{index: -1}
}

// Push appends entry after the current position
func (h *MemoryHistory) Push(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries[:h.index+1], entry)
	h.index = len(h.entries) - 1
}

// Replace overwrites the current entry, or pushes when empty
func (h *MemoryHistory) Replace(entry HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index < 0 {
		h.entries = append(h.entries, entry)
		h.index = 0
		return
	}
	h.entries[h.index] = entry
}

// Back moves one entry back
func (h *MemoryHistory) Back() (HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index <= 0 {
		return HistoryEntry{}, false
	}
	h.index--
	return h.entries[h.index], true
}

// Forward moves one entry forward
func (h *MemoryHistory) Forward() (HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index >= len(h.entries)-1 {
		return HistoryEntry{}, false
	}
	h.index++
	return h.entries[h.index], true
}

// Current returns the entry at the current position
func (h *MemoryHistory) Current() (HistoryEntry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.index < 0 {
		return HistoryEntry{}, false
	}
	return h.entries[h.index], true
}

// Entries returns a copy of every entry, oldest first
func (h *MemoryHistory) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]HistoryEntry(nil), h.entries...)
}
