// Package guard provides scoped mutual exclusion for shared device state.
//
// A Guard is obtained by Acquire and released exactly once, normally with
// defer so the lock is dropped on every return path:
//
//	defer guard.Acquire(&s.mu).Release()
//
// Acquisition blocks without a timeout. Go mutexes are not reentrant, so
// packages built on guard split each public operation into a thin locking
// wrapper and an unexported "...Locked" body; bodies only ever call other
// bodies, never the public wrappers.
package guard

import "sync"

// Guard holds a lock until Release is called.
type Guard struct {
	l sync.Locker
}

// Acquire blocks until l is held and returns a Guard owning it.
func Acquire(l sync.Locker) Guard {
	l.Lock()
	return Guard{l: l}
}

// Release unlocks the guarded lock. Calling Release on a zero Guard is a no-op.
func (g Guard) Release() {
	if g.l != nil {
		g.l.Unlock()
	}
}

// Do runs fn while holding l. The lock is released even if fn panics.
func Do(l sync.Locker, fn func()) {
	defer Acquire(l).Release()
	fn()
}
