package barrier

import (
	"testing"
	"time"
)

func TestInvokeBlocksUntilProcessed(t *testing.T) {
	b := New()
	ran := make(chan struct{})
	go func() {
		b.Invoke(func() { close(ran) })
	}()

	select {
	case <-ran:
		t.Fatal("callback ran before ProcessOne was called")
	case <-time.After(20 * time.Millisecond):
	}

	if !b.ProcessOne() {
		t.Fatal("ProcessOne returned false with a pending request")
	}
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("callback did not run after ProcessOne")
	}
}

func TestProcessOneNonBlockingWhenEmpty(t *testing.T) {
	b := New()
	if b.ProcessOne() {
		t.Fatal("ProcessOne returned true with nothing pending")
	}
}

func TestExactlyOneCallbackPerProcessOne(t *testing.T) {
	b := New()
	var ran1, ran2 bool
	done1 := make(chan struct{})
	done2 := make(chan struct{})
	go func() { b.Invoke(func() { ran1 = true }); close(done1) }()

	// Ensure the first request is enqueued before starting the second.
	time.Sleep(20 * time.Millisecond)
	if !b.ProcessOne() {
		t.Fatal("first ProcessOne found nothing pending")
	}
	<-done1
	if !ran1 {
		t.Fatal("first callback did not run")
	}

	go func() { b.Invoke(func() { ran2 = true }); close(done2) }()
	time.Sleep(20 * time.Millisecond)
	if !b.ProcessOne() {
		t.Fatal("second ProcessOne found nothing pending")
	}
	<-done2
	if !ran2 {
		t.Fatal("second callback did not run")
	}
}
