package intransit

import "testing"

func TestAllocateTakeRoundTrip(t *testing.T) {
	var tbl Table
	h, err := tbl.Allocate(Record{Context: "first"})
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if h == 0 {
		t.Fatal("handle 0 must never be allocated")
	}
	r, err := tbl.Take(h)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if r.Context != "first" {
		t.Errorf("Context = %v, want first", r.Context)
	}
	if _, err := tbl.Take(h); err != ErrUnknownHandle {
		t.Fatalf("second Take err = %v, want ErrUnknownHandle", err)
	}
}

func TestHandlesNeverCollideWithoutIntervenngTake(t *testing.T) {
	var tbl Table
	seen := make(map[uint8]bool)
	for i := 0; i < Capacity; i++ {
		h, err := tbl.Allocate(Record{Context: i})
		if err != nil {
			t.Fatalf("Allocate %d: %v", i, err)
		}
		if seen[h] {
			t.Fatalf("handle %d reused while still live", h)
		}
		seen[h] = true
	}
	if _, err := tbl.Allocate(Record{}); err != ErrOverflow {
		t.Fatalf("Allocate at capacity err = %v, want ErrOverflow", err)
	}
	if tbl.Len() != Capacity {
		t.Fatalf("Len = %d, want %d", tbl.Len(), Capacity)
	}
}

func TestOverflowDoesNotCorruptExistingEntries(t *testing.T) {
	var tbl Table
	handles := make([]uint8, 0, Capacity)
	for i := 0; i < Capacity; i++ {
		h, err := tbl.Allocate(Record{Context: i})
		if err != nil {
			t.Fatalf("Allocate %d: %v", i, err)
		}
		handles = append(handles, h)
	}
	if _, err := tbl.Allocate(Record{}); err != ErrOverflow {
		t.Fatalf("expected overflow, got %v", err)
	}
	for i, h := range handles {
		r, err := tbl.Peek(h)
		if err != nil {
			t.Fatalf("Peek(%d): %v", h, err)
		}
		if r.Context != i {
			t.Errorf("Peek(%d).Context = %v, want %d", h, r.Context, i)
		}
	}
}

func TestResetForgetsPendingHandles(t *testing.T) {
	var tbl Table
	h, _ := tbl.Allocate(Record{Context: "x"})
	tbl.Reset()
	if _, err := tbl.Take(h); err != ErrUnknownHandle {
		t.Fatalf("Take after Reset err = %v, want ErrUnknownHandle", err)
	}
}
