// Package ifengine implements the event/trigger engine (C10): `if` and
// `every` conditions matched against GPIO edges or periodic timers,
// dispatched through an ISR-safe message pipe to a daemon task that runs
// the bound alias.
package ifengine

import (
	"sync/atomic"
	"time"
)

// TriggerClass distinguishes the four condition kinds spec.md 3.5 names.
type TriggerClass int

const (
	RisingPin TriggerClass = iota
	FallingPin
	Conditional
	Periodic
)

func (c TriggerClass) String() string {
	switch c {
	case RisingPin:
		return "rising"
	case FallingPin:
		return "falling"
	case Conditional:
		return "conditional"
	case Periodic:
		return "every"
	default:
		return "?"
	}
}

// Entry is one ifcond/every row (spec.md 3.5). Pointer identity is stable
// for the entry's lifetime; Delete marks it Alive=false rather than
// freeing it, so a pipe message or a cached pointer enqueued just before
// deletion still observes consistent (if stale) data — the pool-return
// invariant, backed here by the garbage collector instead of a real pool.
type Entry struct {
	ID    uint16
	Class TriggerClass
	Pin   int // real GPIO for rising/falling; synthetic trigger index otherwise

	MustHigh, MustLow uint64
	HasHigh, HasLow   bool

	HasRateLimit bool
	RateLimitMS  uint16

	HasExecLimit bool
	ExecLimit    uint32

	HasInitialDelay bool
	InitialDelayMS  uint32
	PollIntervalMS  uint32

	AliasName string

	Alive    atomic.Bool
	Disabled atomic.Bool

	hits        uint32
	drops       uint32
	lastMatchNS int64
	lastExecNS  int64

	next   *Entry
	cancel func() // stops this entry's polling goroutine, if any
}

func (e *Entry) Hits() uint32  { return atomic.LoadUint32(&e.hits) }
func (e *Entry) Drops() uint32 { return atomic.LoadUint32(&e.drops) }

func (e *Entry) LastMatch() time.Time   { return fromUnixNano(atomic.LoadInt64(&e.lastMatchNS)) }
func (e *Entry) LastExecute() time.Time { return fromUnixNano(atomic.LoadInt64(&e.lastExecNS)) }

func fromUnixNano(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// expired reports whether the entry has reached its execution cap.
func (e *Entry) expired() bool {
	return e.HasExecLimit && atomic.LoadUint32(&e.hits) >= e.ExecLimit
}

// Clear resets hit/drop counters and timestamps, re-enabling an expired
// entry without touching Disabled.
func (e *Entry) Clear() {
	atomic.StoreUint32(&e.hits, 0)
	atomic.StoreUint32(&e.drops, 0)
	atomic.StoreInt64(&e.lastMatchNS, 0)
	atomic.StoreInt64(&e.lastExecNS, 0)
}
