package store

import "time"

// DefaultHistorySize is the number of committed transitions kept
const DefaultHistorySize = 50

// HistoryEntry records one committed transition
type HistoryEntry struct {
	ID        string
	Timestamp time.Time
	Action    Action
	Previous  State
	Next      State
}

// history is a fixed capacity ring; the oldest entry is evicted first
type history struct {
	entries []HistoryEntry
	start   int
	size    int
}

func newHistory(capacity int) *history {
	return &history{entries: make([]HistoryEntry, capacity)}
}

func (h *history) push(e HistoryEntry) {
	capacity := len(h.entries)
	if h.size < capacity {
		h.entries[(h.start+h.size)%capacity] = e
		h.size++
		return
	}
	h.entries[h.start] = e
	h.start = (h.start + 1) % capacity
}

// list returns the entries oldest first
func (h *history) list() []HistoryEntry {
	out := make([]HistoryEntry, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.entries[(h.start+i)%len(h.entries)]
	}
	return out
}

func (h *history) reset() {
	clear(h.entries)
	h.start = 0
	h.size = 0
}
