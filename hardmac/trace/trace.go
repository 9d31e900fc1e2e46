// Package trace is an optional timestamped event ring for diagnosing the
// worker/barrier/state-machine interleaving (spec §4.3, §4.5) when a bug
// only reproduces under real timing. Adapted from the teacher's
// rfm69/dbgbuf.go package-level debug buffer, turned into an instance type
// so concurrent hardmac.Radio instances in tests don't share one buffer.
package trace

import (
	"fmt"
	"sync"
	"time"
)

type event struct {
	at  time.Time
	txt string
}

// Buffer accumulates timestamped debug events. A nil *Buffer is safe to call
// Push on: it's the default for a Radio that isn't being traced.
type Buffer struct {
	mu     sync.Mutex
	events []event
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{}
}

// Push appends one event, timestamped now.
func (b *Buffer) Push(format string, args ...interface{}) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event{at: time.Now(), txt: fmt.Sprintf(format, args...)})
}

// Dump returns every recorded event as "<offset>s: text" lines, the offset
// in seconds with six decimals, relative to the first event.
func (b *Buffer) Dump() []string {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return nil
	}
	t0 := b.events[0].at
	out := make([]string, len(b.events))
	for i, ev := range b.events {
		out[i] = fmt.Sprintf("%.6fs: %s", ev.at.Sub(t0).Seconds(), ev.txt)
	}
	return out
}
