package sequence

import (
	"fmt"
	"time"

	"github.com/vvb333007/gopshell/internal/linuxio"
)

// Driver sends compiled sequences out a GPIO pin. The RMT peripheral has
// no Linux uAPI equivalent, so transmission is done by bit-banging the
// line in the calling goroutine with time.Sleep standing in for the
// hardware's tick counter — an approximation documented here rather than
// silently passed off as real RMT timing (spec.md §1's substitution
// contract).
type Driver struct {
	chip *linuxio.Chip
	reg  *Registry
}

func NewDriver(chip *linuxio.Chip, reg *Registry) *Driver {
	return &Driver{chip: chip, reg: reg}
}

// Send transmits sequence id out pin, honoring Loop and the optional EOT
// level. It blocks until transmission (including any finite loop count)
// completes.
func (d *Driver) Send(pin int, id int) error {
	seq, ok := d.reg.Lookup(id)
	if !ok {
		return fmt.Errorf("no sequence %d defined", id)
	}
	symbols, err := seq.Compiled()
	if err != nil {
		return fmt.Errorf("sequence %d: %w", id, err)
	}
	if len(symbols) == 0 {
		return fmt.Errorf("sequence %d is empty", id)
	}

	line, err := d.chip.RequestLine(uint32(pin), linuxio.FlagOutput, 0, "gopshell-sequence")
	if err != nil {
		return err
	}
	defer line.Close()

	send := func() error {
		for _, sym := range symbols {
			if err := drive(line, sym.A, seq.TickUS); err != nil {
				return err
			}
			if err := drive(line, sym.B, seq.TickUS); err != nil {
				return err
			}
		}
		return nil
	}

	switch {
	case seq.Loop.Infinite:
		for {
			if err := send(); err != nil {
				return err
			}
		}
	case seq.Loop.Count >= 2:
		for i := 0; i < seq.Loop.Count; i++ {
			if err := send(); err != nil {
				return err
			}
		}
	default:
		if err := send(); err != nil {
			return err
		}
	}

	return line.SetLevel(seq.EOTHigh)
}

func drive(line *linuxio.Line, h Half, tickUS float64) error {
	if h.Ticks == 0 {
		return nil
	}
	if err := line.SetLevel(h.High); err != nil {
		return err
	}
	time.Sleep(time.Duration(float64(h.Ticks)*tickUS*1000) * time.Nanosecond)
	return nil
}
