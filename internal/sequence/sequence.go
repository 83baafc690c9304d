// Package sequence implements the RMT pulse-sequence compiler (C11): a
// symbol-level specification (zero/one/head/tail/bits/levels/tick/
// modulation/loop/eot) that compiles to a flat hardware symbol array.
package sequence

import (
	"fmt"
	"strconv"
	"strings"
)

// Half is one level/duration pair, the atomic unit an RMT symbol is built
// from.
type Half struct {
	High  bool
	Ticks uint16
}

// Symbol is one compiled hardware RMT item: two level/duration halves.
type Symbol struct {
	A, B Half
}

// Alphabet is one of "zero" or "one": either a single level (short form,
// one symbol encodes two bits) or a two-half pulse (long form, one symbol
// per bit).
type Alphabet struct {
	set   bool
	long  bool
	short Half
	pulse Symbol
}

func (a Alphabet) IsSet() bool { return a.set }

// ParseShort parses "L/D" (level 0/1, duration in ticks) into a short-form
// alphabet symbol.
func ParseShort(spec string) (Alphabet, error) {
	h, err := parseHalf(spec)
	if err != nil {
		return Alphabet{}, err
	}
	return Alphabet{set: true, long: false, short: h}, nil
}

// ParseLong parses "L/D,L/D" into a long-form (pulse) alphabet symbol.
func ParseLong(spec string) (Alphabet, error) {
	parts := strings.Split(spec, ",")
	if len(parts) != 2 {
		return Alphabet{}, fmt.Errorf("expected two level/duration halves, got %q", spec)
	}
	a, err := parseHalf(parts[0])
	if err != nil {
		return Alphabet{}, err
	}
	b, err := parseHalf(parts[1])
	if err != nil {
		return Alphabet{}, err
	}
	return Alphabet{set: true, long: true, pulse: Symbol{A: a, B: b}}, nil
}

func parseHalf(spec string) (Half, error) {
	parts := strings.SplitN(spec, "/", 2)
	if len(parts) != 2 {
		return Half{}, fmt.Errorf("expected LEVEL/DURATION, got %q", spec)
	}
	lvl, err := strconv.Atoi(parts[0])
	if err != nil || (lvl != 0 && lvl != 1) {
		return Half{}, fmt.Errorf("level must be 0 or 1, got %q", parts[0])
	}
	dur, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return Half{}, fmt.Errorf("bad duration %q", parts[1])
	}
	return Half{High: lvl == 1, Ticks: uint16(dur)}, nil
}

// Modulation configures the optional RMT carrier.
type Modulation struct {
	Enabled    bool
	FreqHz     uint32
	DutyPct    int
	ModulateOn bool // true: carrier rides on '1's, false: on '0's
}

// LoopCount encodes the three states spec.md 3.6 allows: none, a finite
// count >= 2, or infinite.
type LoopCount struct {
	Infinite bool
	Count    int // 0 == none (single shot); >=2 for finite
}

// Sequence is one RMT sequence (component C11 / spec.md 3.6).
type Sequence struct {
	ID int

	TickUS     float64
	Zero, One  Alphabet
	Head, Tail *Symbol
	Bits       string
	Bytes      []byte

	Carrier Modulation
	Loop    LoopCount
	EOTHigh bool

	compiled []Symbol
	dirty    bool
}

func New(id int) *Sequence {
	return &Sequence{ID: id, TickUS: 1.0, dirty: true}
}

// SetTick sets the RMT tick length in microseconds; range per spec.md 3.6.
func (s *Sequence) SetTick(us float64) error {
	if us < 0.0125 || us > 3.2 {
		return fmt.Errorf("tick out of range [0.0125, 3.2]: %v", us)
	}
	s.TickUS = us
	s.invalidate()
	return nil
}

// Frequency reports the RMT resolution frequency derived from TickUS.
func (s *Sequence) Frequency() float64 {
	return 1e6 / s.TickUS
}

func (s *Sequence) invalidate() {
	s.compiled = nil
	s.dirty = true
}

// SetZero / SetOne set the alphabet symbols; both invalidate the compiled
// array.
func (s *Sequence) SetZero(a Alphabet) { s.Zero = a; s.invalidate() }
func (s *Sequence) SetOne(a Alphabet)  { s.One = a; s.invalidate() }

// SetHeadTail sets or clears both head and tail together, per the
// invariant that they must be set as a pair.
func (s *Sequence) SetHeadTail(head, tail *Symbol) error {
	if (head == nil) != (tail == nil) {
		return fmt.Errorf("head and tail must be set together")
	}
	s.Head, s.Tail = head, tail
	s.invalidate()
	return nil
}

// SetBits sets the bit-string form ("101100...").
func (s *Sequence) SetBits(bits string) error {
	for _, c := range bits {
		if c != '0' && c != '1' {
			return fmt.Errorf("bits must be 0/1 only, got %q", bits)
		}
	}
	s.Bits = bits
	s.Bytes = nil
	s.invalidate()
	return nil
}

// SetLevels installs a direct (level,duration) list, bypassing the
// alphabet/bit-string path entirely.
func (s *Sequence) SetLevels(levels []Half) {
	s.compiled = halvesToSymbols(levels)
	s.dirty = false
	s.Bits = ""
}

func halvesToSymbols(levels []Half) []Symbol {
	out := make([]Symbol, 0, (len(levels)+1)/2)
	for i := 0; i+1 < len(levels); i += 2 {
		out = append(out, Symbol{A: levels[i], B: levels[i+1]})
	}
	if len(levels)%2 == 1 {
		last := levels[len(levels)-1]
		out = append(out, Symbol{A: last, B: last})
	}
	return out
}

// Compile builds the symbol array from the currently-set inputs. Padded
// reports whether an odd bit count was padded (the caller should inform
// the user, per spec.md 4.9). Compiling the same inputs twice yields a
// byte-identical array (invariant 8.9).
func (s *Sequence) Compile() (padded bool, err error) {
	if !s.dirty && s.compiled != nil {
		return false, nil
	}
	if s.Bits == "" {
		return false, fmt.Errorf("no bits or levels set")
	}
	if !s.Zero.IsSet() || !s.One.IsSet() {
		return false, fmt.Errorf("zero and one must both be set")
	}
	if s.Zero.long != s.One.long {
		return false, fmt.Errorf("zero and one must be the same form (both short or both long)")
	}

	bits := s.Bits
	if !s.Zero.long && len(bits)%2 == 1 {
		bits = bits + string(bits[len(bits)-1])
		padded = true
	}

	var body []Symbol
	if s.Zero.long {
		for _, c := range bits {
			if c == '0' {
				body = append(body, s.Zero.pulse)
			} else {
				body = append(body, s.One.pulse)
			}
		}
	} else {
		for i := 0; i < len(bits); i += 2 {
			a := halfFor(s, bits[i])
			b := halfFor(s, bits[i+1])
			body = append(body, Symbol{A: a, B: b})
		}
	}

	var out []Symbol
	if s.Zero.long && s.Head != nil {
		out = append(out, *s.Head)
	}
	out = append(out, body...)
	if s.Zero.long && s.Tail != nil {
		out = append(out, *s.Tail)
	}

	s.compiled = out
	s.dirty = false
	return padded, nil
}

func halfFor(s *Sequence, bit byte) Half {
	if bit == '0' {
		return s.Zero.short
	}
	return s.One.short
}

// Compiled returns the current symbol array, compiling first if needed.
func (s *Sequence) Compiled() ([]Symbol, error) {
	if _, err := s.Compile(); err != nil {
		return nil, err
	}
	return s.compiled, nil
}
