package window

import "time"

// Entry is one interaction record kept by the coordinator: a bounded
// summary of a planner or executor call, not a raw transcript.
type Entry struct {
	Kind    string    `json:"kind"`
	Summary string    `json:"summary"`
	At      time.Time `json:"at"`
}

// Window is a fixed-capacity ordered buffer of interaction records.
// Insertion evicts the oldest record once capacity is exceeded; oversized
// individual records are truncated before insertion rather than evicted
// whole, so a single large entry cannot wipe out recency breadth.
//
// A Window belongs to a single workflow invocation and is not safe for
// concurrent use.
type Window struct {
	capacity int
	entryMax int
	entries  []Entry
}

// New creates a window. capacity and entryMax must be positive; zero or
// negative values fall back to defaults.
func New(capacity, entryMax int) *Window {
	if capacity <= 0 {
		capacity = 16
	}
	if entryMax <= 0 {
		entryMax = 2048
	}
	return &Window{
		capacity: capacity,
		entryMax: entryMax,
		entries:  make([]Entry, 0, capacity),
	}
}

// Add appends a record, truncating it to the per-entry cap first and then
// evicting the oldest record if the window is full.
func (w *Window) Add(kind, summary string) {
	if len(summary) > w.entryMax {
		summary = summary[:w.entryMax] + "..."
	}
	if len(w.entries) >= w.capacity {
		w.entries = w.entries[1:]
	}
	w.entries = append(w.entries, Entry{Kind: kind, Summary: summary, At: time.Now()})
}

// Entries returns a copy of the current records, oldest first.
func (w *Window) Entries() []Entry {
	out := make([]Entry, len(w.entries))
	copy(out, w.entries)
	return out
}

// Len returns the number of records currently held.
func (w *Window) Len() int { return len(w.entries) }

// Capacity returns the fixed capacity.
func (w *Window) Capacity() int { return w.capacity }
