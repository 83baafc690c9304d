package sync2

import "sync"

// Critical is a bounded critical-section guard, the Go stand-in for the
// firmware's barrier_t (portENTER_CRITICAL/portEXIT_CRITICAL). Code guarded
// by it must stay small and linear: no blocking calls, no I/O.
type Critical struct {
	mu sync.Mutex
}

// Lock enters the critical section.
func (c *Critical) Lock() { c.mu.Lock() }

// Unlock leaves the critical section.
func (c *Critical) Unlock() { c.mu.Unlock() }

// Binary is a binary semaphore, lazily usable from its zero value (a
// 1-buffered channel primed full on first use), mirroring the firmware's
// lazily-initialized semaphores.
type Binary struct {
	once sync.Once
	ch   chan struct{}
}

func (b *Binary) init() {
	b.once.Do(func() {
		b.ch = make(chan struct{}, 1)
		b.ch <- struct{}{}
	})
}

// Take acquires the semaphore, blocking until available.
func (b *Binary) Take() {
	b.init()
	<-b.ch
}

// Give releases the semaphore. Any task may call Give, not just the one
// that called Take, matching the firmware's semaphore (as opposed to
// mutex) semantics.
func (b *Binary) Give() {
	b.init()
	select {
	case b.ch <- struct{}{}:
	default:
	}
}
