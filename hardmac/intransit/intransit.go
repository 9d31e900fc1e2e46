// Package intransit implements the in-transit table (component B): a
// bounded map from a 1-byte MCPS handle to the transmission record that
// submitted it, so an asynchronous MCPS-DATA.confirm can be routed back to
// its originating caller.
//
// Per spec §9's fixed-capacity design note, this is a fixed array of
// (handle, record) slots searched linearly rather than a Go map: the upper bound of 7 live handles (5 indirect
// plus 2 margin) is architectural, driven by the co-processor's indirect
// queue depth, not a scaling concern, so a fixed array avoids allocation on
// the hot path the way the original source's IntransitHandles/IntransitPackets
// arrays did.
package intransit

import (
	"errors"
	"sync"
)

// Capacity is the maximum number of concurrently in-transit records: 5
// indirect transactions plus a margin of 2, per spec §3.
const Capacity = 7

var (
	// ErrOverflow is returned by Allocate when all handles are in use.
	ErrOverflow = errors.New("intransit: table full")
	// ErrUnknownHandle is returned by Take/Peek for a handle not in the table.
	ErrUnknownHandle = errors.New("intransit: unknown handle")
)

// Record is a snapshot of an in-flight transmission: the caller context
// needed to complete the transmit-done callback once the confirm for this
// handle arrives.
type Record struct {
	Handle  uint8
	Context interface{}
}

type slot struct {
	inUse  bool
	record Record
}

// Table is the guard-mutex-protected handle table.
type Table struct {
	mu    sync.Mutex
	slots [Capacity]slot
	next  uint8 // next handle to try, for round-robin allocation
}

// Allocate chooses the first currently-unused non-zero handle at or after
// the one following the most recently allocated handle (round-robin,
// wrapping at 255, skipping handle 0, which is reserved for "free slot"),
// stores record under it, and returns the handle. It fails with ErrOverflow if all
// Capacity slots are occupied.
func (t *Table) Allocate(record Record) (uint8, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	used := 0
	for i := range t.slots {
		if t.slots[i].inUse {
			used++
		}
	}
	if used >= Capacity {
		return 0, ErrOverflow
	}

	h := t.next
	for tries := 0; tries < 256; tries++ {
		if h == 0 {
			h++
			continue
		}
		if !t.handleInUse(h) {
			break
		}
		h++
	}
	if h == 0 {
		// wrapped all the way around with nothing free: shouldn't happen
		// given the used < Capacity check above, but guard anyway.
		return 0, ErrOverflow
	}

	idx := t.slotFor(h)
	record.Handle = h
	t.slots[idx] = slot{inUse: true, record: record}
	t.next = h + 1
	return h, nil
}

// handleInUse reports whether handle h currently has a live record. Callers
// must hold t.mu.
func (t *Table) handleInUse(h uint8) bool {
	for i := range t.slots {
		if t.slots[i].inUse && t.slots[i].record.Handle == h {
			return true
		}
	}
	return false
}

// slotFor finds a free array slot to host a new record. Callers must hold
// t.mu and must have already confirmed the table is not full.
func (t *Table) slotFor(h uint8) int {
	for i := range t.slots {
		if !t.slots[i].inUse {
			return i
		}
	}
	return -1
}

// Take atomically removes and returns the record for handle. It fails with
// ErrUnknownHandle if no record is stored under it.
func (t *Table) Take(handle uint8) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].inUse && t.slots[i].record.Handle == handle {
			r := t.slots[i].record
			t.slots[i] = slot{}
			return r, nil
		}
	}
	return Record{}, ErrUnknownHandle
}

// Peek reads the record for handle without removing it. Used only for
// defensive assertions, per spec §4.2.
func (t *Table) Peek(handle uint8) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if t.slots[i].inUse && t.slots[i].record.Handle == handle {
			return t.slots[i].record, nil
		}
	}
	return Record{}, ErrUnknownHandle
}

// Reset discards every pending record, used at MAC reset per spec §5
// ("Pending in-transit handles are forgotten at MAC reset").
func (t *Table) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.slots = [Capacity]slot{}
	t.next = 1
}

// Len reports the number of currently live records.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for i := range t.slots {
		if t.slots[i].inUse {
			n++
		}
	}
	return n
}
