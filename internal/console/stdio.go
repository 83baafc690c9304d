package console

import (
	"os"
	"time"

	"github.com/daedaluz/fdev/poll"
	"golang.org/x/sys/unix"
)

// Stdio is the default console device when no serial port is configured:
// the process's own controlling terminal, switched to raw mode so the
// line editor sees every byte including control characters.
type Stdio struct {
	fd       int
	saved    *unix.Termios
	readTO   time.Duration
}

// NewStdio puts fd 0 into raw mode and returns a Device over stdin/stdout.
func NewStdio() (*Stdio, error) {
	fd := int(os.Stdin.Fd())
	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}
	raw := *saved
	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	raw.Oflag &^= unix.OPOST
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8
	raw.Cc[unix.VMIN] = 0
	raw.Cc[unix.VTIME] = 1
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, err
	}
	return &Stdio{fd: fd, saved: saved}, nil
}

func (s *Stdio) IsUp() bool { return true }

func (s *Stdio) ReadTimeout(buf []byte, timeout time.Duration) (int, error) {
	if err := poll.WaitInput(s.fd, timeout); err != nil {
		return 0, err
	}
	return os.Stdin.Read(buf)
}

func (s *Stdio) Write(buf []byte) (int, error) {
	return os.Stdout.Write(buf)
}

func (s *Stdio) Close() error {
	if s.saved != nil {
		return unix.IoctlSetTermios(s.fd, unix.TCSETS, s.saved)
	}
	return nil
}
