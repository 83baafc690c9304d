package linuxio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// PWMChannel is a Linux sysfs PWM channel (/sys/class/pwm/pwmchipN/pwmM),
// backing the pin VM's "pwm" verb and the PWM collaborator of spec.md §6
// (attach/write/detach/read_freq).
type PWMChannel struct {
	chip, channel int
	dir           string
	attached      bool
	freq          uint32
	duty          float64
}

func NewPWMChannel(chip, channel int) *PWMChannel {
	return &PWMChannel{
		chip:    chip,
		channel: channel,
		dir:     filepath.Join("/sys/class/pwm", fmt.Sprintf("pwmchip%d", chip), fmt.Sprintf("pwm%d", channel)),
	}
}

// Attach exports the channel (if needed) and starts it at freq Hz, duty in
// [0,1]. freq==0 stops and unexports it, matching the pin VM's "pwm f d"
// semantics (f=0 stops).
func (c *PWMChannel) Attach(freq uint32, duty float64) error {
	if freq == 0 {
		return c.Detach()
	}
	if !c.attached {
		exportPath := filepath.Join(filepath.Dir(c.dir), "export")
		_ = os.WriteFile(exportPath, []byte(strconv.Itoa(c.channel)), 0644)
		c.attached = true
	}
	period := uint64(1e9 / float64(freq))
	dutyNs := uint64(float64(period) * clamp01(duty))
	if err := c.write("period", strconv.FormatUint(period, 10)); err != nil {
		return err
	}
	if err := c.write("duty_cycle", strconv.FormatUint(dutyNs, 10)); err != nil {
		return err
	}
	if err := c.write("enable", "1"); err != nil {
		return err
	}
	c.freq, c.duty = freq, duty
	return nil
}

func (c *PWMChannel) Detach() error {
	if !c.attached {
		return nil
	}
	_ = c.write("enable", "0")
	unexportPath := filepath.Join(filepath.Dir(c.dir), "unexport")
	_ = os.WriteFile(unexportPath, []byte(strconv.Itoa(c.channel)), 0644)
	c.attached = false
	c.freq, c.duty = 0, 0
	return nil
}

func (c *PWMChannel) ReadFreq() uint32 { return c.freq }
func (c *PWMChannel) Duty() float64    { return c.duty }
func (c *PWMChannel) Running() bool    { return c.attached }

func (c *PWMChannel) write(file, value string) error {
	return os.WriteFile(filepath.Join(c.dir, file), []byte(value), 0644)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
