// Package alias implements named command lists (C12): `alias NAME` editing
// mode and `exec NAME…` replay, backed by a per-alias write-preferring RW
// lock so ifcond-held references survive concurrent edits.
package alias

import (
	"fmt"
	"sync"

	"github.com/vvb333007/gopshell/internal/sync2"
	"github.com/vvb333007/gopshell/internal/token"
)

// Alias is one named list of recorded command lines. Its address is
// stable for the process lifetime once created, so an ifcond can cache the
// *Alias and keep dispatching to it by pointer even across renames of
// other entries in the registry.
type Alias struct {
	Name string

	lock  sync2.RWLock
	lines []*token.Record
}

// Append tokenizes line and adds it to the alias, incrementing the
// record's refcount so it outlives the caller's own tokenized copy.
func (a *Alias) Append(line string) {
	rec := token.Tokenize(line)
	rec.Ref()
	a.lock.Lock()
	a.lines = append(a.lines, rec)
	a.lock.Unlock()
}

// List returns the alias's recorded lines, most-recently-added last.
func (a *Alias) List() []string {
	a.lock.RLock()
	defer a.lock.RUnlock()
	out := make([]string, len(a.lines))
	for i, r := range a.lines {
		out[i] = r.Raw
	}
	return out
}

// Delete removes the nth recorded line (0-based), or every line if all is
// true. Removed records are unref'd.
func (a *Alias) Delete(n int, all bool) error {
	a.lock.Lock()
	defer a.lock.Unlock()
	if all {
		for _, r := range a.lines {
			r.Unref()
		}
		a.lines = nil
		return nil
	}
	if n < 0 || n >= len(a.lines) {
		return fmt.Errorf("no line %d", n)
	}
	a.lines[n].Unref()
	a.lines = append(a.lines[:n], a.lines[n+1:]...)
	return nil
}

// forEach calls fn on each recorded token record in order while holding
// the reader lock, for sequential dispatch by exec.
func (a *Alias) forEach(fn func(*token.Record)) {
	a.lock.RLock()
	defer a.lock.RUnlock()
	for _, r := range a.lines {
		fn(r)
	}
}

// Registry is the process-wide set of named aliases.
type Registry struct {
	mu      sync.Mutex
	aliases map[string]*Alias

	// Dispatch runs one recorded record; internal/cmds wires this to
	// internal/dispatch.Dispatcher.Dispatch.
	Dispatch func(rec *token.Record)
}

func NewRegistry() *Registry {
	return &Registry{aliases: map[string]*Alias{}}
}

// Get returns the named alias, creating it (empty) if absent. existed
// reports whether it was already present.
func (r *Registry) Get(name string) (a *Alias, existed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.aliases[name]; ok {
		return a, true
	}
	a = &Alias{Name: name}
	r.aliases[name] = a
	return a, false
}

// EnsureExists satisfies internal/ifengine.AliasRunner: it creates an
// empty alias if name doesn't exist yet and reports whether it already did.
func (r *Registry) EnsureExists(name string) bool {
	_, existed := r.Get(name)
	return existed
}

// Lookup returns the named alias without creating it.
func (r *Registry) Lookup(name string) (*Alias, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.aliases[name]
	return a, ok
}

// Names lists all registered aliases, for `show alias`.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.aliases))
	for name := range r.aliases {
		out = append(out, name)
	}
	return out
}

// Run dispatches every recorded line of name in order while holding the
// alias's reader lock (spec.md 4.10), satisfying ifengine.AliasRunner.
func (r *Registry) Run(name string) error {
	a, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("no alias %q", name)
	}
	if r.Dispatch == nil {
		return fmt.Errorf("alias registry has no dispatcher wired")
	}
	a.forEach(func(rec *token.Record) {
		r.Dispatch(rec)
	})
	return nil
}
