// Package pwm tracks which pins currently have a PWM channel attached, for
// the pin VM's "pwm" verb and the "show pwm" command.
package pwm

import (
	"fmt"
	"math"
	"sync"

	"github.com/vvb333007/gopshell/internal/linuxio"
)

// Row is one entry of "show pwm".
type Row struct {
	Pin  int
	Freq uint32
	Duty float64
}

var (
	mu       sync.Mutex
	channels = map[int]*linuxio.PWMChannel{}
	nextSlot int

	// resBits and chanInc mirror the original's ledc_res/pwm_ch_inc
	// console variables: duty resolution (bits) and the channel-slot
	// stride used to dodge interference between adjacent LEDC channels.
	resBits = 13
	chanInc = 1
)

// Attach starts (or updates) PWM on pin at freq Hz / duty in [0,1]. freq==0
// stops and releases the pin's channel. duty is quantized to resBits of
// resolution before reaching the channel, matching ledc_res's effect on
// the original hardware's duty register width.
func Attach(pin int, freq uint32, duty float64) error {
	mu.Lock()
	defer mu.Unlock()
	ch, ok := channels[pin]
	if !ok {
		ch = linuxio.NewPWMChannel(0, nextSlot)
		nextSlot += chanInc
		channels[pin] = ch
	}
	steps := float64(uint32(1)<<uint(resBits) - 1)
	duty = math.Round(duty*steps) / steps
	if err := ch.Attach(freq, duty); err != nil {
		return err
	}
	if freq == 0 {
		delete(channels, pin)
	}
	return nil
}

// ResolutionBits returns the current duty-cycle quantization width.
func ResolutionBits() int { mu.Lock(); defer mu.Unlock(); return resBits }

// SetResolutionBits overrides the duty-cycle quantization width (1..20,
// matching the original's ledc_timer_bit_t range).
func SetResolutionBits(bits int) error {
	if bits < 1 || bits > 20 {
		return fmt.Errorf("ledc resolution out of range: %d", bits)
	}
	mu.Lock()
	resBits = bits
	mu.Unlock()
	return nil
}

// ChannelIncrement returns the current channel-slot stride.
func ChannelIncrement() int { mu.Lock(); defer mu.Unlock(); return chanInc }

// SetChannelIncrement overrides the channel-slot stride (1 or 2, matching
// the original's "hop over odd or even channel numbers" comment).
func SetChannelIncrement(n int) error {
	if n != 1 && n != 2 {
		return fmt.Errorf("channel increment must be 1 or 2, got %d", n)
	}
	mu.Lock()
	chanInc = n
	mu.Unlock()
	return nil
}

// Show returns one row per pin currently driving PWM, for "show pwm".
func Show() []Row {
	mu.Lock()
	defer mu.Unlock()
	rows := make([]Row, 0, len(channels))
	for pin, ch := range channels {
		if ch.Running() {
			rows = append(rows, Row{Pin: pin, Freq: ch.ReadFreq(), Duty: ch.Duty()})
		}
	}
	return rows
}
