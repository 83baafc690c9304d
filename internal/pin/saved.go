package pin

// NumPins bounds the saved-state table and the ifengine's trigger-index
// space. 40 covers a typical SoC GPIO range (0..39); unlike the firmware
// this isn't a hard ceiling enforced by silicon, just the table size.
const NumPins = 40

// Flags are the accumulated mode bits a pin can carry (spec.md 3.8).
type Flags uint8

const (
	FlagInput Flags = 1 << iota
	FlagOutput
	FlagPullUp
	FlagPullDown
	FlagOpenDrain
)

// Saved is one pin's snapshot: mode flags, last digital level, which
// peripheral bus (if any) last claimed it, and its GPIO-matrix routing.
type Saved struct {
	Valid      bool
	Flags      Flags
	Level      bool
	Peripheral string // "", "uart0", "spi1", ...
	MatrixIn   int    // -1 if not routed
	MatrixOut  int
	IOMux      int
}

// Table is a plain fixed-size array of saved states, last-writer-wins by
// design (spec.md §5).
type Table struct {
	rows [NumPins]Saved
}

func NewTable() *Table {
	t := &Table{}
	for i := range t.rows {
		t.rows[i] = Saved{MatrixIn: -1, MatrixOut: -1}
	}
	return t
}

func (t *Table) Save(p int, s Saved) {
	if p < 0 || p >= NumPins {
		return
	}
	s.Valid = true
	t.rows[p] = s
}

func (t *Table) Load(p int) (Saved, bool) {
	if p < 0 || p >= NumPins {
		return Saved{}, false
	}
	row := t.rows[p]
	return row, row.Valid
}
