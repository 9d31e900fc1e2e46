package trace

import "testing"

func TestNilBufferPushAndDumpAreNoops(t *testing.T) {
	var b *Buffer
	b.Push("should not panic")
	if got := b.Dump(); got != nil {
		t.Fatalf("Dump on nil buffer = %v, want nil", got)
	}
}

func TestPushThenDumpReturnsFormattedEvents(t *testing.T) {
	b := New()
	b.Push("event %d", 1)
	b.Push("event %d", 2)
	lines := b.Dump()
	if len(lines) != 2 {
		t.Fatalf("Dump returned %d lines, want 2", len(lines))
	}
}
