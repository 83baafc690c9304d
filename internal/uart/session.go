// Package uart wraps github.com/daedaluz/goserial's Port/Options with the
// book-keeping the "uart N" directory needs: an index-to-device mapping,
// baud rate, and open/closed state. It owns none of the termios ioctl
// plumbing itself; that lives in the driver it depends on.
package uart

import (
	"errors"
	"fmt"
	"sync"
	"time"

	serial "github.com/daedaluz/goserial"
)

// ErrClosed is returned by Session operations attempted before Open (or
// after Close).
var ErrClosed = errors.New("uart: session not open")

// Session wraps a serial.Port with the book-keeping the "uart N" directory
// needs: device path and baud rate. It has the method set of
// internal/console.Device; "tty N" opens a Session but does not install it
// as the active console.
type Session struct {
	mu      sync.Mutex
	index   int
	devPath string
	baud    uint32
	port    *serial.Port
}

// DevPath maps a UART index to its Linux character device, the same
// narrow mapping the firmware hardcodes between "uart 0/1/2" and the SoC's
// UART peripherals.
func DevPath(index int) string {
	return fmt.Sprintf("/dev/ttyUSB%d", index)
}

// NewSession creates a closed session for the given index; Open binds it
// to a real device.
func NewSession(index int) *Session {
	return &Session{index: index, devPath: DevPath(index), baud: 115200}
}

// Open opens (or reopens) the underlying port at the session's configured
// baud rate.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		_ = s.port.Close()
	}
	opts := serial.NewOptions().SetReadTimeout(200 * time.Millisecond)
	p, err := serial.Open(s.devPath, opts)
	if err != nil {
		return fmt.Errorf("uart%d: open %s: %w", s.index, s.devPath, err)
	}
	attrs, err := p.GetAttr()
	if err == nil {
		attrs.MakeRaw()
		attrs.SetSpeed(baudToCFlag(s.baud))
		_ = p.SetAttr(serial.TCSANOW, attrs)
	}
	s.port = p
	return nil
}

// SetBaud updates the configured baud rate, applying it immediately if the
// port is open.
func (s *Session) SetBaud(baud uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baud = baud
	if s.port == nil {
		return nil
	}
	attrs, err := s.port.GetAttr()
	if err != nil {
		return err
	}
	attrs.SetSpeed(baudToCFlag(baud))
	return s.port.SetAttr(serial.TCSANOW, attrs)
}

func (s *Session) Baud() uint32 { return s.baud }
func (s *Session) Index() int   { return s.index }

// IsUp reports whether the port is open.
func (s *Session) IsUp() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port != nil
}

func (s *Session) ReadTimeout(buf []byte, timeout time.Duration) (int, error) {
	s.mu.Lock()
	p := s.port
	s.mu.Unlock()
	if p == nil {
		return 0, ErrClosed
	}
	return p.ReadTimeout(buf, timeout)
}

func (s *Session) Write(buf []byte) (int, error) {
	s.mu.Lock()
	p := s.port
	s.mu.Unlock()
	if p == nil {
		return 0, ErrClosed
	}
	return p.Write(buf)
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

func baudToCFlag(baud uint32) serial.CFlag {
	switch baud {
	case 9600:
		return serial.B9600
	case 19200:
		return serial.B19200
	case 38400:
		return serial.B38400
	case 57600:
		return serial.B57600
	case 230400:
		return serial.B230400
	case 460800:
		return serial.B460800
	case 921600:
		return serial.B921600
	default:
		return serial.B115200
	}
}
