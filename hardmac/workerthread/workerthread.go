// Package workerthread pins the co-processor worker goroutine (spec §5) to
// its own OS thread at an elevated scheduling priority, adapted from the
// teacher's thread.Realtime. The original C driver's worker is a plain
// pthread; nothing in spec.md mandates a scheduling policy, so this is
// exposed as an opt-in helper rather than invoked automatically.
package workerthread

import (
	"runtime"
	"syscall"
	"unsafe"
)

const (
	schedFIFO = 1
	schedRR   = 2
)

type schedParam struct {
	Priority int
}

// Priority is the round-robin priority level Pin requests: the lower-middle
// of the realtime range, matching the teacher's choice.
const Priority = 10

// Pin locks the calling goroutine to its own kernel thread and elevates
// that thread to round-robin realtime scheduling. Intended to be called as
// the first statement of the worker goroutine that reads indications off
// the co-processor transport, so that frame delivery isn't starved by the
// Go scheduler under host load.
func Pin() error {
	runtime.LockOSThread()
	tid := syscall.Gettid()
	res, _, errno := syscall.RawSyscall(syscall.SYS_SCHED_SETSCHEDULER, uintptr(tid),
		uintptr(schedRR), uintptr(unsafe.Pointer(&schedParam{Priority})))
	if res == 0 {
		return nil
	}
	return errno
}
