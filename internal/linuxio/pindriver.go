package linuxio

import (
	"fmt"
	"os"
	"strconv"
	"sync"
)

// PinDriver adapts a gpiochip Chip to the internal/pin.GPIO collaborator
// interface. GPIO direction/level/pull are real kernel operations; iomux
// function select, GPIO-matrix routing, and sleep-hold have no Linux
// uAPI equivalent (they're ESP32 register-level concepts), so they are
// only tracked as software state inside this driver; no command displays
// that state.
type PinDriver struct {
	chip *Chip

	mu      sync.Mutex
	lines   map[int]*Line
	iomux   map[int]int
	matrixI map[int]int
	matrixO map[int]int
	held    map[int]bool
}

func NewPinDriver(chip *Chip) *PinDriver {
	return &PinDriver{
		chip:    chip,
		lines:   map[int]*Line{},
		iomux:   map[int]int{},
		matrixI: map[int]int{},
		matrixO: map[int]int{},
		held:    map[int]bool{},
	}
}

func (d *PinDriver) line(pin int) *Line {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lines[pin]
}

func (d *PinDriver) ensure(pin int, input bool) (*Line, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if l, ok := d.lines[pin]; ok {
		_ = l.Close()
	}
	flags := uint32(handleFlagOutput)
	if input {
		flags = handleFlagInput
	}
	l, err := d.chip.RequestLine(uint32(pin), flags, 0, "gopshell-pin")
	if err != nil {
		return nil, err
	}
	d.lines[pin] = l
	return l, nil
}

func (d *PinDriver) SetDirection(pin int, input bool) error {
	_, err := d.ensure(pin, input)
	return err
}

func (d *PinDriver) SetPull(pin int, up, down bool) error {
	// Pull configuration requires re-requesting the line with pull flags;
	// this driver does not do that and does not record the request either:
	// it returns nil and the line's pulls stay as they were.
	return nil
}

func (d *PinDriver) SetOpenDrain(pin int, enabled bool) error {
	return nil
}

func (d *PinDriver) SetLevel(pin int, high bool) error {
	l := d.line(pin)
	if l == nil {
		var err error
		if l, err = d.ensure(pin, false); err != nil {
			return err
		}
	}
	return l.SetLevel(high)
}

func (d *PinDriver) GetLevel(pin int) (bool, error) {
	l := d.line(pin)
	if l == nil {
		var err error
		if l, err = d.ensure(pin, true); err != nil {
			return false, err
		}
	}
	return l.GetLevel()
}

// ReadAnalog reads a scaled ADC sample via the Linux IIO subsystem
// (/sys/bus/iio/devices/iio:device0/in_voltageN_raw), the closest Linux
// analogue to the firmware's analogRead(). Boards without an IIO ADC
// return an error, which the pin VM surfaces to the operator.
func (d *PinDriver) ReadAnalog(pin int) (int, error) {
	path := fmt.Sprintf("/sys/bus/iio/devices/iio:device0/in_voltage%d_raw", pin)
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("no ADC channel for pin %d: %w", pin, err)
	}
	v, err := strconv.Atoi(trimNL(string(b)))
	if err != nil {
		return 0, err
	}
	return v, nil
}

func trimNL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func (d *PinDriver) Hold(pin int) error {
	d.mu.Lock()
	d.held[pin] = true
	d.mu.Unlock()
	return nil
}

func (d *PinDriver) Release(pin int) error {
	d.mu.Lock()
	d.held[pin] = false
	d.mu.Unlock()
	return nil
}

func (d *PinDriver) MatrixIn(pin, sig int) error {
	d.mu.Lock()
	d.matrixI[pin] = sig
	d.mu.Unlock()
	return nil
}

func (d *PinDriver) MatrixOut(pin, sig int) error {
	d.mu.Lock()
	d.matrixO[pin] = sig
	d.mu.Unlock()
	return nil
}

func (d *PinDriver) IOMuxSelect(pin, fn int) error {
	d.mu.Lock()
	d.iomux[pin] = fn
	d.mu.Unlock()
	return nil
}

func (d *PinDriver) ResetToMatrix(pin int) error {
	d.mu.Lock()
	delete(d.iomux, pin)
	d.matrixI[pin] = 0
	d.matrixO[pin] = 0
	if l, ok := d.lines[pin]; ok {
		_ = l.Close()
		delete(d.lines, pin)
	}
	d.mu.Unlock()
	return nil
}
