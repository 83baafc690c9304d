// Package dispatch implements the keyword registry (C6) and command
// dispatcher (C7): per-directory keyword tables, directory registration,
// per-task active directory/context, and argument-count-based handler
// resolution.
package dispatch

import (
	"github.com/vvb333007/gopshell/internal/shellerr"
	"github.com/vvb333007/gopshell/internal/token"
)

// ManyArgs and NoArgs are the two argument-count sentinels a Keyword's
// Argc may hold, alongside any non-negative exact count.
const (
	ManyArgs = -1
	NoArgs   = 0
)

// Handler is the signature every command entry point implements. ctx
// carries the active directory's per-task context value. argv[0] is the
// keyword itself; argv[1:] are its arguments.
type Handler func(ctx *Context, argv []string) shellerr.Code

// Keyword is one command-table row (spec.md 3.2). Multiple rows may share
// Name if they differ in Argc; the dispatcher picks the exact-argc match.
type Keyword struct {
	Name    string
	Handler Handler
	Argc    int // exact count, ManyArgs, or NoArgs
	Help    string
	Brief   string
}

// Hidden reports whether this is a help-only placeholder row.
func (k Keyword) Hidden() bool { return k.Help == "" && k.Brief == "" }

// Directory is an immutable command table plus its decorative prompt
// template and name (spec.md 3.3).
type Directory struct {
	Name      string
	Prompt    string // template, e.g. "%s-uart%d>"
	Keywords  []Keyword
}

// registry is the process-wide set of directories, populated at startup
// and never mutated afterward.
var registry = map[string]*Directory{}

// Register adds dir to the process-wide registry. Call only at startup.
func Register(dir *Directory) {
	registry[dir.Name] = dir
}

// Lookup returns a previously registered directory by name.
func Lookup(name string) (*Directory, bool) {
	d, ok := registry[name]
	return d, ok
}

// Main is the conventional name of the root directory, consulted as a
// fallback when the active directory doesn't resolve a keyword.
const Main = "main"

// Context is the per-task active-directory state: which directory is
// active, an arbitrary integer payload (current UART index, sequence id,
// alias pointer id, ...), and the resolved-handler cache used by alias
// replay.
type Context struct {
	Dir     *Directory
	Value   int
	Name    string // secondary payload for directories keyed by name, e.g. "alias NAME"
	Handler *token.Record // non-nil once resolved, for alias reuse
}

// NewContext starts a task in dirName with payload value.
func NewContext(dirName string, value int) *Context {
	d, _ := registry[dirName]
	return &Context{Dir: d, Value: value}
}

// Clone copies the context for a spawned background task (spec.md 4.6:
// "inherits the parent's active directory and context at spawn time").
func (c *Context) Clone() *Context {
	return &Context{Dir: c.Dir, Value: c.Value, Name: c.Name}
}

// Switch changes the active directory and context payload, as "uart N",
// "sequence N" etc. do.
func (c *Context) Switch(dirName string, value int) bool {
	d, ok := registry[dirName]
	if !ok {
		return false
	}
	c.Dir = d
	c.Value = value
	c.Name = ""
	return true
}

// SwitchNamed is Switch for directories keyed by a string rather than an
// int, such as "alias NAME".
func (c *Context) SwitchNamed(dirName, name string) bool {
	d, ok := registry[dirName]
	if !ok {
		return false
	}
	c.Dir = d
	c.Value = 0
	c.Name = name
	return true
}
