// Package pcnt models the PCNT (pulse counter) collaborator of spec.md §6.
// The SoC pulse-counter peripheral has no Linux uAPI equivalent, so a unit
// here is a software counter fed by a GPIO edge watcher
// (internal/linuxio.EdgeWatcher) instead of a dedicated counter peripheral
// — documented in DESIGN.md as a deliberate substitution, the kind §1
// anticipates ("peripheral driver calls... replaced by whatever target
// ecosystem provides").
package pcnt

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vvb333007/gopshell/internal/linuxio"
)

// Unit claims one logical counter bound to a GPIO.
type Unit struct {
	watcher *linuxio.EdgeWatcher
	count   int64
	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
}

// ErrNoUnit is returned by Claim when all software units are in use,
// mirroring the firmware's "no free PCNT unit" resource exhaustion.
type poolError struct{ msg string }

func (e *poolError) Error() string { return e.msg }

var ErrNoUnit = &poolError{"no free PCNT unit"}

const maxUnits = 8

var (
	poolMu sync.Mutex
	inUse  int
)

// Claim reserves a unit slot (poolable resource), returning ErrNoUnit once
// maxUnits are outstanding.
func Claim() (*Unit, error) {
	poolMu.Lock()
	defer poolMu.Unlock()
	if inUse >= maxUnits {
		return nil, ErrNoUnit
	}
	inUse++
	return &Unit{}, nil
}

// Release returns the unit slot to the pool; Stop should be called first.
func (u *Unit) Release() {
	poolMu.Lock()
	inUse--
	poolMu.Unlock()
}

// Start begins counting edges on chip/offset. countRising/countFalling
// select which edges increment the counter.
func (u *Unit) Start(chip *linuxio.Chip, offset uint32, countRising, countFalling bool) error {
	w, err := chip.WaitEdge(offset)
	if err != nil {
		return err
	}
	u.mu.Lock()
	u.watcher = w
	u.mu.Unlock()
	u.running.Store(true)

	ctx, cancel := context.WithCancel(context.Background())
	u.cancel = cancel
	go func() {
		for ctx.Err() == nil {
			edge, ok, err := w.Wait(250)
			if err != nil || !ok {
				continue
			}
			if (edge.Rising && countRising) || (!edge.Rising && countFalling) {
				atomic.AddInt64(&u.count, 1)
			}
		}
	}()
	return nil
}

// Stop halts counting and closes the underlying watcher.
func (u *Unit) Stop() error {
	u.running.Store(false)
	if u.cancel != nil {
		u.cancel()
	}
	u.mu.Lock()
	w := u.watcher
	u.watcher = nil
	u.mu.Unlock()
	if w != nil {
		return w.Close()
	}
	return nil
}

// Read returns the current count.
func (u *Unit) Read() int64 { return atomic.LoadInt64(&u.count) }

// Clear resets the count to zero without stopping.
func (u *Unit) Clear() { atomic.StoreInt64(&u.count, 0) }

func (u *Unit) Running() bool { return u.running.Load() }
