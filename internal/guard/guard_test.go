package guard

import (
	"sync"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	var mu sync.Mutex

	g := Acquire(&mu)
	if mu.TryLock() {
		t.Fatal("lock should be held after Acquire()")
	}
	g.Release()

	if !mu.TryLock() {
		t.Fatal("lock should be free after Release()")
	}
	mu.Unlock()
}

func TestZeroGuardRelease(t *testing.T) {
	var g Guard
	g.Release() // must not panic
}

func TestDoReleasesOnPanic(t *testing.T) {
	var mu sync.Mutex

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		Do(&mu, func() { panic("boom") })
	}()

	if !mu.TryLock() {
		t.Fatal("lock should be released after panic in Do()")
	}
	mu.Unlock()
}

func TestAcquireBlocksUntilReleased(t *testing.T) {
	var mu sync.Mutex
	g := Acquire(&mu)

	acquired := make(chan struct{})
	go func() {
		defer Acquire(&mu).Release()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second Acquire() should block while the lock is held")
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Acquire() did not proceed after Release()")
	}
}

func TestDoSerializes(t *testing.T) {
	var mu sync.Mutex
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Do(&mu, func() { counter++ })
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
}
