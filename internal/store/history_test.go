package store

import (
	"testing"
	"time"
)

func at(minute int) time.Time {
	return base.Add(time.Duration(minute) * time.Minute)
}

func TestHistory_DefaultCapacity(t *testing.T) {
	if got := NewHistory(0).Capacity(); got != DefaultHistorySize {
		t.Errorf("Capacity() = %d, want %d", got, DefaultHistorySize)
	}
}

func TestHistory_OrdersChronologically(t *testing.T) {
	h := NewHistory(5)
	for _, m := range []int{3, 1, 4, 2} {
		h.Insert(Event{Key: "k", RunID: string(rune('0' + m)), CompletedAt: at(m)})
	}

	events := h.Events()
	for i := 1; i < len(events); i++ {
		if events[i].CompletedAt.Before(events[i-1].CompletedAt) {
			t.Fatalf("events out of order at %d: %v before %v", i, events[i].CompletedAt, events[i-1].CompletedAt)
		}
	}
}

func TestHistory_TiesKeepInsertionOrder(t *testing.T) {
	h := NewHistory(5)
	h.Insert(Event{Key: "a", RunID: "first", CompletedAt: at(1)})
	h.Insert(Event{Key: "b", RunID: "second", CompletedAt: at(1)})
	h.Insert(Event{Key: "c", RunID: "third", CompletedAt: at(1)})

	events := h.Events()
	for i, want := range []string{"first", "second", "third"} {
		if events[i].RunID != want {
			t.Errorf("events[%d] = %q, want %q", i, events[i].RunID, want)
		}
	}
}

func TestHistory_KeepsNewestUnderAnyOrder(t *testing.T) {
	orders := [][]int{
		{0, 1, 2, 3, 4, 5, 6, 7},
		{7, 6, 5, 4, 3, 2, 1, 0},
		{3, 7, 0, 5, 1, 6, 2, 4},
	}

	for _, order := range orders {
		h := NewHistory(5)
		for _, m := range order {
			h.Insert(Event{Key: "k", RunID: string(rune('a' + m)), CompletedAt: at(m)})
			if h.Len() > 5 {
				t.Fatalf("Len() = %d exceeds capacity", h.Len())
			}
		}

		events := h.Events()
		if len(events) != 5 {
			t.Fatalf("order %v: Len() = %d, want 5", order, len(events))
		}
		for i, ev := range events {
			if want := at(3 + i); !ev.CompletedAt.Equal(want) {
				t.Errorf("order %v: events[%d] = %v, want %v", order, i, ev.CompletedAt, want)
			}
		}
	}
}

func TestHistory_OlderThanAllIsDiscardedWhenFull(t *testing.T) {
	h := NewHistory(2)
	h.Insert(Event{Key: "k", RunID: "new", CompletedAt: at(5)})
	h.Insert(Event{Key: "k", RunID: "newer", CompletedAt: at(6)})
	h.Insert(Event{Key: "k", RunID: "ancient", CompletedAt: at(1)})

	events := h.Events()
	if events[0].RunID != "new" || events[1].RunID != "newer" {
		t.Errorf("events = %+v, want [new newer]", events)
	}
}

func TestHistory_UpdatesExistingRun(t *testing.T) {
	h := NewHistory(5)
	h.Insert(Event{Key: "k", RunID: "42", Status: "running", CompletedAt: at(1)})
	h.Insert(Event{Key: "k", RunID: "42", Status: "success", CompletedAt: at(1)})
	h.Insert(Event{Key: "other", RunID: "42", Status: "failed", CompletedAt: at(1)})

	events := h.Events()
	if len(events) != 2 {
		t.Fatalf("Len() = %d, want 2", len(events))
	}
	if events[0].Status != "success" {
		t.Errorf("events[0].Status = %q, want updated %q", events[0].Status, "success")
	}
}

func TestHistory_RerunMovesToNewPosition(t *testing.T) {
	h := NewHistory(3)
	h.Insert(Event{Key: "k", RunID: "1", Status: "failed", CompletedAt: at(0)})
	h.Insert(Event{Key: "k", RunID: "2", CompletedAt: at(1)})
	h.Insert(Event{Key: "k", RunID: "3", CompletedAt: at(2)})

	// run 1 re-run: same id, later completion
	h.Insert(Event{Key: "k", RunID: "1", Status: "success", CompletedAt: at(3)})
	h.Insert(Event{Key: "k", RunID: "4", CompletedAt: at(2).Add(30 * time.Second)})

	events := h.Events()
	want := []string{"3", "4", "1"}
	if len(events) != len(want) {
		t.Fatalf("Len() = %d, want %d", len(events), len(want))
	}
	for i, id := range want {
		if events[i].RunID != id {
			t.Errorf("events[%d].RunID = %q, want %q", i, events[i].RunID, id)
		}
	}
	if events[2].Status != "success" || !events[2].CompletedAt.Equal(at(3)) {
		t.Errorf("re-run = %+v, want success at %v", events[2], at(3))
	}
}

func TestHistory_DedupesByTimeWithoutID(t *testing.T) {
	h := NewHistory(5)
	h.Insert(Event{Key: "k", Status: "failed", CompletedAt: at(1)})
	h.Insert(Event{Key: "k", Status: "success", CompletedAt: at(1)})

	if h.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", h.Len())
	}
	if got := h.Events()[0].Status; got != "success" {
		t.Errorf("Status = %q, want %q", got, "success")
	}
}
