package store

// DefaultHistorySize is the number of recent runs kept when no size is given.
const DefaultHistorySize = 5

// History is a fixed-capacity list of events ordered by completion time.
//
// Events with equal completion times keep their insertion order. When an
// insertion overflows the capacity the chronologically oldest event is
// dropped, so the history always holds the newest events seen so far.
// History is not safe for concurrent use; [MemoryStore] guards it.
type History struct {
	capacity int
	events   []Event
}

// NewHistory creates a History holding at most capacity events.
// A non-positive capacity falls back to [DefaultHistorySize].
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &History{
		capacity: capacity,
		events:   make([]Event, 0, capacity+1),
	}
}

// Capacity returns the maximum number of events retained.
func (h *History) Capacity() int {
	return h.capacity
}

// Len returns the number of events currently retained.
func (h *History) Len() int {
	return len(h.events)
}

// Insert adds e in chronological position and evicts the oldest event if the
// capacity is exceeded. A run already present (same source and run id, or
// same source and completion time when the id is empty) is updated in place;
// if its completion time moved, as for a re-run, it is re-sorted first.
func (h *History) Insert(e Event) {
	if i := h.find(e); i >= 0 {
		if h.events[i].CompletedAt.Equal(e.CompletedAt) {
			h.events[i].Status = e.Status
			h.events[i].URL = e.URL
			return
		}
		h.events = append(h.events[:i], h.events[i+1:]...)
	}

	// first position strictly after e keeps ties in insertion order
	pos := len(h.events)
	for i, existing := range h.events {
		if existing.CompletedAt.After(e.CompletedAt) {
			pos = i
			break
		}
	}

	h.events = append(h.events, Event{})
	copy(h.events[pos+1:], h.events[pos:])
	h.events[pos] = e

	if len(h.events) > h.capacity {
		h.events = append(h.events[:0], h.events[1:]...)
	}
	if len(h.events) > h.capacity {
		panic("store: history exceeded its capacity")
	}
}

// Events returns a copy of the retained events, oldest first.
func (h *History) Events() []Event {
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

func (h *History) find(e Event) int {
	for i, existing := range h.events {
		if existing.Key != e.Key {
			continue
		}
		if e.RunID != "" && existing.RunID == e.RunID {
			return i
		}
		if e.RunID == "" && existing.RunID == "" && existing.CompletedAt.Equal(e.CompletedAt) {
			return i
		}
	}
	return -1
}
