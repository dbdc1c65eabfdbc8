package chat

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAdmitReleaseCycle(t *testing.T) {
	g := NewGuard()

	if !g.TryAdmit("u1") {
		t.Fatal("first TryAdmit = false, want true")
	}
	if g.TryAdmit("u1") {
		t.Fatal("second TryAdmit = true, want false while in flight")
	}
	g.Release("u1")
	if !g.TryAdmit("u1") {
		t.Fatal("TryAdmit after Release = false, want true")
	}
}

func TestConcurrentAdmissionsSameUser(t *testing.T) {
	g := NewGuard()

	const n = 50
	var admitted atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.TryAdmit("u1") {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := admitted.Load(); got != 1 {
		t.Fatalf("admitted = %d, want exactly 1", got)
	}
}

func TestDistinctUsersIndependent(t *testing.T) {
	g := NewGuard()

	if !g.TryAdmit("u1") {
		t.Fatal("u1 admission failed")
	}

	// u2 must get through promptly even while u1 holds its flag.
	done := make(chan bool, 1)
	go func() {
		done <- g.TryAdmit("u2")
	}()
	select {
	case ok := <-done:
		if !ok {
			t.Fatal("u2 TryAdmit = false, want true")
		}
	case <-time.After(time.Second):
		t.Fatal("u2 admission blocked on u1's flag")
	}
}
