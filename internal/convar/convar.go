// Package convar implements console variables (C13): a registry of typed
// cells bound to host memory, looked up by exact-or-unambiguous-prefix
// name and read/written by the `var` command.
package convar

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the scalar interpretation used for parsing and printing.
type Kind int

const (
	Signed Kind = iota
	Unsigned
	Float
	Pointer
)

// Cell is one registered variable. Get/Set are closures over the actual
// host-side storage so the registry doesn't need unsafe.Pointer
// reflection over arbitrary Go values — the caller that registers a
// variable already knows its concrete type.
type Cell struct {
	Name string
	Kind Kind
	Size int // 1, 2, or 4 bytes

	ElemSize  int // >0 marks this cell as an array
	ElemCount int

	Get func() float64
	Set func(v float64) error
}

// Registry is the process-wide set of registered console variables,
// registered once at startup and never removed (spec.md 3.7).
type Registry struct {
	cells []*Cell
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add registers a scalar cell.
func (r *Registry) Add(name string, kind Kind, size int, get func() float64, set func(float64) error) {
	r.cells = append(r.cells, &Cell{Name: name, Kind: kind, Size: size, Get: get, Set: set})
}

// AddArray registers an array cell, displayed as NAME[IDX] entries.
func (r *Registry) AddArray(name string, kind Kind, elemSize, count int, get func(idx int) float64, set func(idx int, v float64) error) {
	for i := 0; i < count; i++ {
		i := i
		r.cells = append(r.cells, &Cell{
			Name:      fmt.Sprintf("%s[%d]", name, i),
			Kind:      kind,
			Size:      elemSize,
			ElemSize:  elemSize,
			ElemCount: count,
			Get:       func() float64 { return get(i) },
			Set:       func(v float64) error { return set(i, v) },
		})
	}
}

// Lookup resolves name by exact match first, then by unambiguous prefix.
// Two or more prefix candidates is an ambiguity error.
func (r *Registry) Lookup(name string) (*Cell, error) {
	for _, c := range r.cells {
		if c.Name == name {
			return c, nil
		}
	}
	var matches []*Cell
	for _, c := range r.cells {
		if strings.HasPrefix(c.Name, name) {
			matches = append(matches, c)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("no such variable %q", name)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous variable name %q (%d candidates)", name, len(matches))
	}
}

// All returns every registered cell, registration order, for `show`.
func (r *Registry) All() []*Cell {
	return r.cells
}

// Format renders a cell's current value per its Kind.
func (c *Cell) Format() string {
	v := c.Get()
	switch c.Kind {
	case Signed:
		return strconv.FormatInt(int64(v), 10)
	case Unsigned:
		return strconv.FormatUint(uint64(v), 10)
	case Float:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case Pointer:
		return fmt.Sprintf("0x%x", uint64(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ParseValue parses VALUE the way `var NAME VALUE` does: decimal, 0x hex,
// 0b binary, 0-leading octal, or a float requiring a decimal point.
// Unsigned cells reject negative values.
func (c *Cell) ParseValue(text string) (float64, error) {
	if c.Kind == Float {
		if !strings.Contains(text, ".") {
			return 0, fmt.Errorf("float assignment requires a decimal point: %q", text)
		}
		return strconv.ParseFloat(text, 64)
	}

	neg := strings.HasPrefix(text, "-")
	unsigned := text
	if neg {
		unsigned = text[1:]
	}

	var n int64
	var err error
	switch {
	case strings.HasPrefix(unsigned, "0x") || strings.HasPrefix(unsigned, "0X"):
		var u uint64
		u, err = strconv.ParseUint(unsigned[2:], 16, 64)
		n = int64(u)
	case strings.HasPrefix(unsigned, "0b") || strings.HasPrefix(unsigned, "0B"):
		var u uint64
		u, err = strconv.ParseUint(unsigned[2:], 2, 64)
		n = int64(u)
	case len(unsigned) > 1 && unsigned[0] == '0':
		var u uint64
		u, err = strconv.ParseUint(unsigned, 8, 64)
		n = int64(u)
	default:
		n, err = strconv.ParseInt(unsigned, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("bad value %q: %w", text, err)
	}
	if neg {
		n = -n
	}
	if c.Kind == Unsigned && n < 0 {
		return 0, fmt.Errorf("unsigned variable %q cannot take negative value %q", c.Name, text)
	}
	return float64(n), nil
}
