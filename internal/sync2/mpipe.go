package sync2

import "sync/atomic"

// MessagePipe is a fixed-capacity, non-blocking-on-send channel carrying
// pointer-sized messages from an ISR-equivalent goroutine to exactly one
// long-lived receiver task, mirroring the mpipe_t of the original firmware.
type MessagePipe struct {
	ch    chan any
	drops uint32
}

// NewMessagePipe creates a pipe with room for capacity pending messages.
func NewMessagePipe(capacity int) *MessagePipe {
	return &MessagePipe{ch: make(chan any, capacity)}
}

// SendFromISR enqueues msg without blocking. It reports whether the send
// succeeded; a false return increments the drop counter, matching the
// firmware's "pipe full, ISR requests a reschedule" contract collapsed into
// a boolean (Go has no ISR priority to boost).
func (p *MessagePipe) SendFromISR(msg any) bool {
	select {
	case p.ch <- msg:
		return true
	default:
		atomic.AddUint32(&p.drops, 1)
		return false
	}
}

// Send is the task-to-task equivalent of SendFromISR; it blocks if the pipe
// is full.
func (p *MessagePipe) Send(msg any) {
	p.ch <- msg
}

// Receive blocks until a message is available or done is closed, returning
// ok=false in the latter case.
func (p *MessagePipe) Receive(done <-chan struct{}) (msg any, ok bool) {
	select {
	case msg = <-p.ch:
		return msg, true
	case <-done:
		return nil, false
	}
}

// Drops returns the number of messages discarded because the pipe was full.
func (p *MessagePipe) Drops() uint32 {
	return atomic.LoadUint32(&p.drops)
}
