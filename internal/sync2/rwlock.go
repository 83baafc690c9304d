// Package sync2 implements the concurrency primitives of component C14:
// a write-preferring RW lock, a fixed-capacity ISR-safe message pipe, and a
// bounded critical section guard. These exist as their own types (instead
// of reaching for sync.RWMutex everywhere) because readers here include a
// goroutine standing in for an interrupt handler (see internal/ifengine),
// which must never block acquiring a lock the way sync.RWMutex's reader
// path can.
package sync2

import (
	"runtime"
	"sync/atomic"
)

// RWLock is a write-preferring reader/writer lock built on an atomic
// counter: positive values count active readers, -1 means a writer holds
// it, 0 means idle. A pending-writer counter makes new readers back off
// once a writer is waiting, and a binary semaphore (a 1-buffered channel)
// serializes writers and blocks the first reader in / wakes on the last
// reader out.
//
// Zero value is a valid, unlocked RWLock.
type RWLock struct {
	cnt   int32
	wreq  int32
	sem   chan struct{}
	semOn int32
}

func (rw *RWLock) semaphore() chan struct{} {
	if atomic.LoadInt32(&rw.semOn) == 0 {
		ch := make(chan struct{}, 1)
		ch <- struct{}{}
		if atomic.CompareAndSwapInt32(&rw.semOn, 0, 1) {
			rw.sem = ch
		}
	}
	return rw.sem
}

// Lock acquires the writer lock. Only one writer may hold the lock, and no
// readers may be active while it is held.
func (rw *RWLock) Lock() {
	sem := rw.semaphore()
	atomic.AddInt32(&rw.wreq, 1)
	for {
		<-sem
		if atomic.LoadInt32(&rw.cnt) != 0 {
			// A reader slipped in between our wreq bump and grabbing
			// the semaphore; give it back and retry.
			sem <- struct{}{}
			runtime.Gosched()
			continue
		}
		atomic.StoreInt32(&rw.cnt, -1)
		break
	}
	atomic.AddInt32(&rw.wreq, -1)
}

// Unlock releases the writer lock.
func (rw *RWLock) Unlock() {
	atomic.StoreInt32(&rw.cnt, 0)
	rw.semaphore() <- struct{}{}
}

// RLock acquires a reader lock. Multiple readers may hold it concurrently;
// a pending writer makes new readers spin-yield until it has run.
func (rw *RWLock) RLock() {
	sem := rw.semaphore()
	for {
		for atomic.LoadInt32(&rw.wreq) > 0 {
			runtime.Gosched()
		}
		n := atomic.AddInt32(&rw.cnt, 1)
		if n <= 0 {
			// A writer won the race; back off and retry.
			atomic.AddInt32(&rw.cnt, -1)
			runtime.Gosched()
			continue
		}
		if n == 1 {
			<-sem
		}
		return
	}
}

// RUnlock releases a reader lock.
func (rw *RWLock) RUnlock() {
	if atomic.AddInt32(&rw.cnt, -1) == 0 {
		rw.semaphore() <- struct{}{}
	}
}

// TryRLock attempts a non-blocking reader acquisition, for callers (an
// ISR-equivalent goroutine) that must never park. It fails if a writer is
// pending or active.
func (rw *RWLock) TryRLock() bool {
	if atomic.LoadInt32(&rw.wreq) > 0 {
		return false
	}
	n := atomic.AddInt32(&rw.cnt, 1)
	if n <= 0 {
		atomic.AddInt32(&rw.cnt, -1)
		return false
	}
	if n == 1 {
		sem := rw.semaphore()
		select {
		case <-sem:
		default:
			atomic.AddInt32(&rw.cnt, -1)
			return false
		}
	}
	return true
}
