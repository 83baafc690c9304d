package sync2

import (
	"testing"
	"time"
)

func TestRWLockMultipleReaders(t *testing.T) {
	var rw RWLock
	if !rw.TryRLock() {
		t.Fatalf("first TryRLock should succeed")
	}
	if !rw.TryRLock() {
		t.Fatalf("second concurrent TryRLock should succeed")
	}
	rw.RUnlock()
	rw.RUnlock()
}

func TestRWLockWriterExcludesReaders(t *testing.T) {
	var rw RWLock
	rw.Lock()
	if rw.TryRLock() {
		t.Fatalf("TryRLock must fail while a writer holds the lock")
	}
	rw.Unlock()
	if !rw.TryRLock() {
		t.Fatalf("TryRLock should succeed once the writer releases")
	}
	rw.RUnlock()
}

func TestRWLockWriterBlocksUntilReadersDrain(t *testing.T) {
	var rw RWLock
	rw.RLock()

	done := make(chan struct{})
	go func() {
		rw.Lock()
		close(done)
		rw.Unlock()
	}()

	select {
	case <-done:
		t.Fatalf("writer acquired the lock while a reader was still active")
	case <-time.After(20 * time.Millisecond):
	}

	rw.RUnlock()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("writer never acquired the lock after the reader released")
	}
}

func TestMessagePipeSendFromISRNonBlocking(t *testing.T) {
	p := NewMessagePipe(1)
	if !p.SendFromISR("a") {
		t.Fatalf("first send into a pipe with room should succeed")
	}
	if p.SendFromISR("b") {
		t.Fatalf("send into a full pipe should fail, not block")
	}
	if p.Drops() != 1 {
		t.Fatalf("Drops() = %d, want 1", p.Drops())
	}
}

func TestMessagePipeReceive(t *testing.T) {
	p := NewMessagePipe(1)
	p.SendFromISR("hello")
	done := make(chan struct{})
	msg, ok := p.Receive(done)
	if !ok || msg != "hello" {
		t.Fatalf("Receive() = %v, %v, want \"hello\", true", msg, ok)
	}
}

func TestMessagePipeReceiveUnblocksOnDone(t *testing.T) {
	p := NewMessagePipe(1)
	done := make(chan struct{})
	close(done)
	_, ok := p.Receive(done)
	if ok {
		t.Fatalf("Receive on a closed done channel should report ok=false")
	}
}
