// Package console implements component C1: byte-level, flush-on-read
// access to whichever device is the "active console" (a real UART, a
// USB-CDC device, or the controlling terminal), with atomic switching.
package console

import (
	"log"
	"sync/atomic"
	"time"
)

// Device is the narrow interface every concrete console type (stdio TTY,
// serial port, USB-CDC) implements.
type Device interface {
	// IsUp reports whether the device is ready for I/O.
	IsUp() bool
	// ReadTimeout blocks up to timeout for at least one byte; short reads
	// are acceptable. timeout < 0 means block indefinitely.
	ReadTimeout(buf []byte, timeout time.Duration) (int, error)
	// Write is best-effort; it never blocks longer than the device's
	// natural flush.
	Write(buf []byte) (int, error)
	// Close releases the underlying resource.
	Close() error
}

// Console holds the single currently-active Device and switches it
// atomically from the shell's perspective.
type Console struct {
	dev      atomic.Pointer[Device]
	failures int32
}

// New creates a Console with an initial device (may be nil; see WaitUp).
func New(dev Device) *Console {
	c := &Console{}
	if dev != nil {
		c.dev.Store(&dev)
	}
	return c
}

// Switch atomically replaces the active device, closing the previous one.
func (c *Console) Switch(dev Device) error {
	old := c.dev.Swap(&dev)
	if old != nil && *old != nil {
		return (*old).Close()
	}
	return nil
}

func (c *Console) current() Device {
	p := c.dev.Load()
	if p == nil {
		return nil
	}
	return *p
}

// WaitUp polls IsUp once a second until the active device reports ready,
// matching spec.md 4.1's startup behavior.
func (c *Console) WaitUp() {
	for {
		d := c.current()
		if d != nil && d.IsUp() {
			return
		}
		time.Sleep(time.Second)
	}
}

// ReadTimeout reads from the active device. After ten consecutive failures
// it logs a diagnostic and keeps retrying (it never gives up, matching the
// firmware's "yield and retry" policy).
func (c *Console) ReadTimeout(buf []byte, timeout time.Duration) (int, error) {
	d := c.current()
	if d == nil {
		time.Sleep(10 * time.Millisecond)
		return 0, nil
	}
	n, err := d.ReadTimeout(buf, timeout)
	if err != nil {
		if atomic.AddInt32(&c.failures, 1) == 10 {
			log.Printf("console: persistent read failure: %v", err)
		}
		return n, err
	}
	atomic.StoreInt32(&c.failures, 0)
	return n, nil
}

// Write writes to the active device.
func (c *Console) Write(buf []byte) (int, error) {
	d := c.current()
	if d == nil {
		return 0, nil
	}
	return d.Write(buf)
}
