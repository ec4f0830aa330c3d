package window

import (
	"fmt"
	"strings"
	"testing"
)

func TestAddEvictsOldestAtCapacity(t *testing.T) {
	w := New(3, 100)
	for i := 1; i <= 5; i++ {
		w.Add("step", fmt.Sprintf("entry %d", i))
	}

	entries := w.Entries()
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, want := range []string{"entry 3", "entry 4", "entry 5"} {
		if entries[i].Summary != want {
			t.Errorf("entry %d: got %q, want %q", i, entries[i].Summary, want)
		}
	}
}

func TestAddTruncatesOversizedEntry(t *testing.T) {
	w := New(4, 10)
	w.Add("plan", strings.Repeat("x", 50))

	entries := w.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	want := strings.Repeat("x", 10) + "..."
	if entries[0].Summary != want {
		t.Errorf("got %q, want %q", entries[0].Summary, want)
	}
	// Truncation must not cost an eviction slot.
	if w.Len() != 1 {
		t.Errorf("got len %d, want 1", w.Len())
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	w := New(2, 100)
	w.Add("step", "original")

	entries := w.Entries()
	entries[0].Summary = "mutated"

	if got := w.Entries()[0].Summary; got != "original" {
		t.Errorf("internal state mutated through copy: %q", got)
	}
}

func TestDefaultsForInvalidSizes(t *testing.T) {
	w := New(0, -1)
	if w.Capacity() <= 0 {
		t.Errorf("expected positive default capacity, got %d", w.Capacity())
	}
	w.Add("step", "ok")
	if w.Len() != 1 {
		t.Errorf("got len %d, want 1", w.Len())
	}
}
