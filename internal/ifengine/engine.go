package ifengine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vvb333007/gopshell/internal/linuxio"
	"github.com/vvb333007/gopshell/internal/pin"
	"github.com/vvb333007/gopshell/internal/sync2"
	"github.com/vvb333007/gopshell/internal/task"
)

// polledIndex and periodicIndex are the two synthetic trigger indices
// beyond the real GPIO pins (spec.md 4.8).
const (
	polledIndex   = pin.NumPins
	periodicIndex = pin.NumPins + 1
	numIndices    = pin.NumPins + 2
)

// Levels is the narrow collaborator the engine needs to evaluate
// must-be-high/must-be-low masks; internal/linuxio.PinDriver satisfies it.
type Levels interface {
	GetLevel(pin int) (bool, error)
}

// AliasRunner executes the command list bound to an ifcond by name.
// internal/alias.Registry satisfies it; the engine doesn't care how.
type AliasRunner interface {
	Run(name string) error
	EnsureExists(name string) bool // creates an empty alias, returns whether it already existed
}

// Engine owns the trigger-index lists, the GPIO edge watchers, and the
// daemon task that drains matches and spawns alias executions.
type Engine struct {
	lock  sync2.RWLock
	lists [numIndices]*Entry
	byID  map[uint16]*Entry
	idGen uint16

	chip   *linuxio.Chip
	levels Levels

	watchers map[int]*linuxio.EdgeWatcher // keyed by GPIO pin
	pipe     *sync2.MessagePipe
	tasks    *task.Manager
	alias    AliasRunner

	done chan struct{}
}

func NewEngine(chip *linuxio.Chip, levels Levels, tasks *task.Manager, alias AliasRunner) *Engine {
	e := &Engine{
		byID:     map[uint16]*Entry{},
		chip:     chip,
		levels:   levels,
		watchers: map[int]*linuxio.EdgeWatcher{},
		pipe:     sync2.NewMessagePipe(64),
		tasks:    tasks,
		alias:    alias,
		done:     make(chan struct{}),
	}
	go e.daemon()
	return e
}

// Stop halts the daemon and all watcher/poller goroutines.
func (e *Engine) Stop() {
	close(e.done)
}

// Spec describes a condition to create; the command layer (internal/cmds)
// builds one of these from parsed `if`/`every` arguments.
type Spec struct {
	Class           TriggerClass
	Pin             int // ignored for Conditional/Periodic
	MustHigh        uint64
	MustLow         uint64
	HasHigh         bool
	HasLow          bool
	RateLimitMS     uint16
	HasRateLimit    bool
	ExecLimit       uint32
	HasExecLimit    bool
	InitialDelayMS  uint32
	HasInitialDelay bool
	PollIntervalMS  uint32 // required for Conditional/Periodic
	AliasName       string
}

// Create installs a new entry and wires whatever ISR/poller plumbing it
// needs. If AliasName names a nonexistent alias, an empty one is created
// and existed reports false (the command layer surfaces a warning for
// this, per spec.md 4.8's "create semantics").
func (e *Engine) Create(sp Spec) (id uint16, existed bool, err error) {
	if sp.Class == Conditional || sp.Class == Periodic {
		if sp.PollIntervalMS == 0 {
			return 0, false, fmt.Errorf("poll interval must be > 0")
		}
	}
	if sp.HasRateLimit && sp.RateLimitMS == 0 {
		sp.RateLimitMS = 1
	}

	entry := &Entry{
		Class:           sp.Class,
		Pin:             sp.Pin,
		MustHigh:        sp.MustHigh,
		MustLow:         sp.MustLow,
		HasHigh:         sp.HasHigh,
		HasLow:          sp.HasLow,
		HasRateLimit:    sp.HasRateLimit,
		RateLimitMS:     sp.RateLimitMS,
		HasExecLimit:    sp.HasExecLimit,
		ExecLimit:       sp.ExecLimit,
		HasInitialDelay: sp.HasInitialDelay,
		InitialDelayMS:  sp.InitialDelayMS,
		PollIntervalMS:  sp.PollIntervalMS,
		AliasName:       sp.AliasName,
	}
	entry.Alive.Store(true)

	existed = e.alias.EnsureExists(sp.AliasName)

	triggerIdx := e.triggerIndex(sp)

	e.lock.Lock()
	e.idGen++
	entry.ID = e.idGen
	entry.next = e.lists[triggerIdx]
	e.lists[triggerIdx] = entry
	e.byID[entry.ID] = entry
	e.lock.Unlock()

	switch sp.Class {
	case RisingPin, FallingPin:
		if err := e.ensureWatcher(sp.Pin); err != nil {
			e.Delete(entry.ID)
			return 0, false, err
		}
	case Conditional, Periodic:
		e.startPoller(entry)
	}

	return entry.ID, existed, nil
}

func (e *Engine) triggerIndex(sp Spec) int {
	switch sp.Class {
	case RisingPin, FallingPin:
		return sp.Pin
	case Conditional:
		return polledIndex
	default:
		return periodicIndex
	}
}

// ensureWatcher lazily starts one edge-watching goroutine per GPIO pin,
// shared by every rising/falling entry on that pin.
func (e *Engine) ensureWatcher(pinNo int) error {
	e.lock.Lock()
	defer e.lock.Unlock()
	if _, ok := e.watchers[pinNo]; ok {
		return nil
	}
	w, err := e.chip.WaitEdge(uint32(pinNo))
	if err != nil {
		return err
	}
	e.watchers[pinNo] = w
	go e.watchLoop(pinNo, w)
	return nil
}

// watchLoop is the Linux stand-in for the ANYEDGE ISR: it never takes the
// blocking form of the RW lock, only TryRLock, matching the "ISR holds no
// lock, relies on interrupt masking" contract — here the mask is
// EdgeWatcher's own mutex, entered by Disable()/Enable() around writer
// mutations on this pin.
func (e *Engine) watchLoop(pinNo int, w *linuxio.EdgeWatcher) {
	for {
		select {
		case <-e.done:
			w.Close()
			return
		default:
		}
		edge, ok, err := w.Wait(250)
		if err != nil || !ok {
			continue
		}
		e.dispatchEdge(pinNo, edge.Rising)
	}
}

func (e *Engine) dispatchEdge(pinNo int, rising bool) {
	if !e.lock.TryRLock() {
		return // writer is mutating this list right now; the edge is lost, same as a masked real ISR would miss it
	}
	defer e.lock.RUnlock()

	wantClass := FallingPin
	if rising {
		wantClass = RisingPin
	}
	for ent := e.lists[pinNo]; ent != nil; ent = ent.next {
		if ent.Class != wantClass {
			continue
		}
		if !ent.Alive.Load() || ent.Disabled.Load() || ent.expired() {
			if ent.expired() {
				atomic.AddUint32(&ent.drops, 1)
			}
			continue
		}
		if !e.masksMatch(ent) {
			continue
		}
		atomic.StoreInt64(&ent.lastMatchNS, time.Now().UnixNano())
		if !e.pipe.SendFromISR(ent) {
			continue // pipe full; MessagePipe counts the drop (Drops)
		}
	}
}

func (e *Engine) masksMatch(ent *Entry) bool {
	if ent.HasHigh {
		for b := 0; b < 64; b++ {
			if ent.MustHigh&(1<<uint(b)) == 0 {
				continue
			}
			high, err := e.levels.GetLevel(b)
			if err != nil || !high {
				return false
			}
		}
	}
	if ent.HasLow {
		for b := 0; b < 64; b++ {
			if ent.MustLow&(1<<uint(b)) == 0 {
				continue
			}
			high, err := e.levels.GetLevel(b)
			if err != nil || high {
				return false
			}
		}
	}
	return true
}

// startPoller launches the per-entry goroutine backing conditional/`every`
// entries, honoring an optional one-shot initial delay before the
// recurring ticker starts (spec.md 4.8).
func (e *Engine) startPoller(ent *Entry) {
	stop := make(chan struct{})
	ent.cancel = func() {
		select {
		case <-stop:
		default:
			close(stop)
		}
	}

	go func() {
		if ent.HasInitialDelay && ent.InitialDelayMS > 0 {
			t := time.NewTimer(time.Duration(ent.InitialDelayMS) * time.Millisecond)
			select {
			case <-t.C:
			case <-stop:
				t.Stop()
				return
			case <-e.done:
				t.Stop()
				return
			}
		}
		ticker := time.NewTicker(time.Duration(ent.PollIntervalMS) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.evalPoller(ent)
			case <-stop:
				return
			case <-e.done:
				return
			}
		}
	}()
}

func (e *Engine) evalPoller(ent *Entry) {
	if !e.lock.TryRLock() {
		return
	}
	defer e.lock.RUnlock()

	if !ent.Alive.Load() || ent.Disabled.Load() {
		return
	}
	if ent.expired() {
		atomic.AddUint32(&ent.drops, 1)
		return
	}
	if ent.Class == Conditional && !e.masksMatch(ent) {
		return
	}
	atomic.StoreInt64(&ent.lastMatchNS, time.Now().UnixNano())
	e.pipe.SendFromISR(ent)
}

// daemon drains matched entries, applies rate-limiting and the execution
// cap, and spawns the bound alias as a background task.
func (e *Engine) daemon() {
	for {
		msg, ok := e.pipe.Receive(e.done)
		if !ok {
			return
		}
		ent := msg.(*Entry)
		e.handleMatch(ent)
	}
}

func (e *Engine) handleMatch(ent *Entry) {
	if !ent.Alive.Load() || ent.Disabled.Load() || ent.expired() {
		return
	}
	now := time.Now()
	if ent.HasRateLimit {
		last := ent.LastExecute()
		if !last.IsZero() && now.Sub(last) < time.Duration(ent.RateLimitMS)*time.Millisecond {
			atomic.AddUint32(&ent.drops, 1)
			return
		}
	}
	atomic.AddUint32(&ent.hits, 1)
	atomic.StoreInt64(&ent.lastExecNS, now.UnixNano())

	e.tasks.Spawn(fmt.Sprintf("ifcond#%d", ent.ID), 0, func(t *task.Task) {
		if err := e.alias.Run(ent.AliasName); err != nil {
			_ = err // the error is dropped; nothing reports it to the console
		}
	}, nil)
}

// Delete unlinks id's entry and stops any goroutine it owns. The GPIO
// interrupt-masking step the spec calls for is EdgeWatcher.Disable/Enable,
// invoked here around the list mutation whenever the entry's class is
// pin-triggered.
func (e *Engine) Delete(id uint16) bool {
	e.lock.Lock()
	ent, ok := e.byID[id]
	if !ok {
		e.lock.Unlock()
		return false
	}
	idx := e.triggerIndexOf(ent)
	var w *linuxio.EdgeWatcher
	if ent.Class == RisingPin || ent.Class == FallingPin {
		w = e.watchers[ent.Pin]
	}
	if w != nil {
		w.Disable()
	}
	e.unlink(idx, ent)
	ent.Alive.Store(false)
	delete(e.byID, id)
	if w != nil {
		w.Enable()
	}
	e.lock.Unlock()

	if ent.cancel != nil {
		ent.cancel()
	}
	return true
}

func (e *Engine) triggerIndexOf(ent *Entry) int {
	switch ent.Class {
	case RisingPin, FallingPin:
		return ent.Pin
	case Conditional:
		return polledIndex
	default:
		return periodicIndex
	}
}

func (e *Engine) unlink(idx int, target *Entry) {
	if e.lists[idx] == target {
		e.lists[idx] = target.next
		return
	}
	for cur := e.lists[idx]; cur != nil; cur = cur.next {
		if cur.next == target {
			cur.next = target.next
			return
		}
	}
}

// Enable / Disable flip the entry's active flag without unlinking it.
func (e *Engine) Enable(id uint16) bool  { return e.setDisabled(id, false) }
func (e *Engine) Disable(id uint16) bool { return e.setDisabled(id, true) }

func (e *Engine) setDisabled(id uint16, disabled bool) bool {
	e.lock.RLock()
	ent, ok := e.byID[id]
	e.lock.RUnlock()
	if !ok {
		return false
	}
	ent.Disabled.Store(disabled)
	return true
}

// Clear resets an entry's counters, re-enabling dispatch if it had
// expired.
func (e *Engine) Clear(id uint16) bool {
	e.lock.RLock()
	ent, ok := e.byID[id]
	e.lock.RUnlock()
	if !ok {
		return false
	}
	ent.Clear()
	return true
}

// Find returns a snapshot pointer (not a copy — callers must not mutate
// fields directly) for display commands.
func (e *Engine) Find(id uint16) (*Entry, bool) {
	e.lock.RLock()
	defer e.lock.RUnlock()
	ent, ok := e.byID[id]
	return ent, ok
}

// List returns every defined entry, most-recently-created last.
func (e *Engine) List() []*Entry {
	e.lock.RLock()
	defer e.lock.RUnlock()
	out := make([]*Entry, 0, len(e.byID))
	for id := uint16(1); id <= e.idGen; id++ {
		if ent, ok := e.byID[id]; ok {
			out = append(out, ent)
		}
	}
	return out
}
