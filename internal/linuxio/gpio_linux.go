// Package linuxio implements spec.md §6's GPIO/PWM/RMT/PCNT "collaborator"
// interfaces against the real Linux kernel uAPI, in the same direct
// ioctl-over-syscall style internal/uart uses for termios: small structs,
// goioctl-built request numbers, no abstraction layer in between.
package linuxio

import (
	"fmt"
	"sync"
	"syscall"
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
	"golang.org/x/sys/unix"
)

// gpiohandle_request / gpioevent_request mirror <linux/gpio.h>. Only the
// fields gopshell actually drives are named; padding keeps the layout
// correct for the ioctl.
type gpiohandleRequest struct {
	lineOffsets  [64]uint32
	flags        uint32
	defaultValue [64]uint8
	consumer     [32]byte
	lines        uint32
	fd           int32
}

type gpiohandleData struct {
	values [64]uint8
}

type gpioeventRequest struct {
	lineOffset  uint32
	handleFlags uint32
	eventFlags  uint32
	consumer    [32]byte
	fd          int32
}

type gpioeventData struct {
	timestamp uint64
	id        uint32
}

const (
	handleFlagInput     = 1 << 0
	handleFlagOutput    = 1 << 1
	handleFlagActiveLow = 1 << 2
	handleFlagOpenDrain = 1 << 3
	handleFlagOpenSrc   = 1 << 4
	handleFlagPullUp    = 1 << 5
	handleFlagPullDown  = 1 << 6

	eventFlagRisingEdge  = 1 << 0
	eventFlagFallingEdge = 1 << 1
)

// FlagInput and FlagOutput are the two RequestLine direction flags other
// packages (internal/sequence's bit-banging sender, internal/pcnt) need to
// pass without reaching into this file's unexported constants.
const (
	FlagInput  = handleFlagInput
	FlagOutput = handleFlagOutput
)

var (
	getLineHandleIOCTL = ioctl.IOWR('B', 0x03, unsafe.Sizeof(gpiohandleRequest{}))
	getLineEventIOCTL  = ioctl.IOWR('B', 0x04, unsafe.Sizeof(gpioeventRequest{}))
	handleGetLineValue = ioctl.IOWR('B', 0x08, unsafe.Sizeof(gpiohandleData{}))
	handleSetLineValue = ioctl.IOWR('B', 0x09, unsafe.Sizeof(gpiohandleData{}))
)

// Chip is an open /dev/gpiochipN; GPIO chardev ioctls are scoped per-chip.
type Chip struct {
	mu   sync.Mutex
	fd   int
	path string
}

// OpenChip opens the GPIO character device for chipIndex (typically 0 on a
// single-SoC board, the Linux analogue of the firmware's single on-chip
// GPIO matrix).
func OpenChip(chipIndex int) (*Chip, error) {
	path := fmt.Sprintf("/dev/gpiochip%d", chipIndex)
	fd, err := syscall.Open(path, syscall.O_RDWR|syscall.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("linuxio: open %s: %w", path, err)
	}
	return &Chip{fd: fd, path: path}, nil
}

func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return syscall.Close(c.fd)
}

// Line is one requested GPIO line handle, kept open so repeated
// get/set_level calls don't re-request the line (mirrors the firmware
// leaving a pin "claimed" once configured).
type Line struct {
	chip   *Chip
	offset uint32
	fd     int
	flags  uint32
}

// RequestLine claims offset with the given direction/pull/drive flags and
// an initial level for outputs.
func (c *Chip) RequestLine(offset uint32, flags uint32, initial uint8, consumer string) (*Line, error) {
	req := gpiohandleRequest{flags: flags, lines: 1}
	req.lineOffsets[0] = offset
	req.defaultValue[0] = initial
	copy(req.consumer[:], consumer)

	if err := ioctl.Ioctl(c.fd, getLineHandleIOCTL, uintptr(unsafe.Pointer(&req))); err != nil {
		return nil, fmt.Errorf("linuxio: request line %d: %w", offset, err)
	}
	return &Line{chip: c, offset: offset, fd: int(req.fd), flags: flags}, nil
}

// SetLevel drives the line high (true) or low (false). Fails (mirroring
// spec.md's pin VM) if the line was requested as input-only.
func (l *Line) SetLevel(high bool) error {
	if l.flags&handleFlagOutput == 0 {
		return fmt.Errorf("linuxio: line %d is not an output", l.offset)
	}
	var data gpiohandleData
	if high {
		data.values[0] = 1
	}
	return ioctl.Ioctl(l.fd, handleSetLineValue, uintptr(unsafe.Pointer(&data)))
}

// GetLevel reads the current digital level.
func (l *Line) GetLevel() (bool, error) {
	var data gpiohandleData
	if err := ioctl.Ioctl(l.fd, handleGetLineValue, uintptr(unsafe.Pointer(&data))); err != nil {
		return false, err
	}
	return data.values[0] != 0, nil
}

func (l *Line) Close() error {
	return syscall.Close(l.fd)
}

// WaitEdge opens an edge-event fd on offset reporting both rising and
// falling transitions; it is the Linux stand-in for install_anyedge_isr,
// consumed by internal/ifengine's watcher goroutine rather than a real
// interrupt vector.
func (c *Chip) WaitEdge(offset uint32) (*EdgeWatcher, error) {
	req := gpioeventRequest{
		lineOffset:  offset,
		handleFlags: handleFlagInput,
		eventFlags:  eventFlagRisingEdge | eventFlagFallingEdge,
	}
	copy(req.consumer[:], "gopshell-ifengine")
	if err := ioctl.Ioctl(c.fd, getLineEventIOCTL, uintptr(unsafe.Pointer(&req))); err != nil {
		return nil, fmt.Errorf("linuxio: request edge watch on %d: %w", offset, err)
	}
	ep, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		syscall.Close(int(req.fd))
		return nil, err
	}
	ev := unix.EpollEvent{Events: unix.EPOLLIN, Fd: req.fd}
	if err := unix.EpollCtl(ep, unix.EPOLL_CTL_ADD, int(req.fd), &ev); err != nil {
		syscall.Close(int(req.fd))
		syscall.Close(ep)
		return nil, err
	}
	return &EdgeWatcher{fd: int(req.fd), epfd: ep, offset: offset}, nil
}

// EdgeWatcher is one GPIO's event fd plus the epoll instance used to wait
// on it with a bounded timeout, so the watcher goroutine can be masked
// (paused) the way the ISR is disabled by a writer.
type EdgeWatcher struct {
	fd     int
	epfd   int
	offset uint32
	masked sync.Mutex
}

// Edge is the decoded result of one GPIO transition.
type Edge struct {
	Offset  uint32
	Rising  bool
	Nanotime uint64
}

// Wait blocks up to timeoutMs (or forever if negative) for the next edge.
// ok is false on timeout.
func (w *EdgeWatcher) Wait(timeoutMs int) (Edge, bool, error) {
	w.masked.Lock()
	w.masked.Unlock()
	events := make([]unix.EpollEvent, 1)
	n, err := unix.EpollWait(w.epfd, events, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return Edge{}, false, nil
		}
		return Edge{}, false, err
	}
	if n == 0 {
		return Edge{}, false, nil
	}
	var data gpioeventData
	buf := (*[unsafe.Sizeof(data)]byte)(unsafe.Pointer(&data))[:]
	if _, err := syscall.Read(w.fd, buf); err != nil {
		return Edge{}, false, err
	}
	return Edge{Offset: w.offset, Rising: data.id == 1, Nanotime: data.timestamp}, true, nil
}

// Disable and Enable implement the writer-side "mask interrupts on this
// pin" step: a writer takes the mask lock before mutating the pin's
// ifcond list, which blocks the watcher goroutine's Wait from returning
// new edges until Enable releases it.
func (w *EdgeWatcher) Disable() { w.masked.Lock() }
func (w *EdgeWatcher) Enable()  { w.masked.Unlock() }

func (w *EdgeWatcher) Close() error {
	syscall.Close(w.fd)
	return syscall.Close(w.epfd)
}
