// Package token implements the tokenizer and the reference-counted
// tokenized input record (spec component C5).
package token

import (
	"strings"
	"sync/atomic"
)

// Record is one parsed user line: the raw line as typed, the token vector,
// and resolution metadata. Records are
// reference counted so a background task or an alias list can keep one
// alive past the line that created it.
type Record struct {
	Raw     string
	Tokens  []string
	NTokens int // original token count
	NEff    int // effective count, after stripping "&"/"&N"

	HasBackground bool
	HasPriority   bool
	Priority      int

	// Handler, when non-nil, short-circuits dispatcher lookup (alias reuse).
	Handler any

	// Next can link records into a list; internal/alias does not use it
	// (it keeps its recorded lines in a slice).
	Next *Record

	refcount int32
}

// New wraps tokens (already split) into a fresh Record with refcount 1.
func New(raw string, tokens []string) *Record {
	return &Record{
		Raw:      raw,
		Tokens:   tokens,
		NTokens:  len(tokens),
		NEff:     len(tokens),
		refcount: 1,
	}
}

// Ref increments the reference count; call before handing the record to a
// background task or appending it to an alias list.
func (r *Record) Ref() {
	atomic.AddInt32(&r.refcount, 1)
}

// Unref decrements the reference count and reports whether it reached zero
// (the caller should then drop all references to r; nothing else to free in
// Go, but the boolean lets callers assert the invariant in tests).
func (r *Record) Unref() bool {
	if r == nil {
		return false
	}
	n := atomic.AddInt32(&r.refcount, -1)
	if n < 0 {
		panic("token: refcount underflow")
	}
	return n == 0
}

// RefCount returns the current reference count (test/diagnostic use only).
func (r *Record) RefCount() int32 {
	return atomic.LoadInt32(&r.refcount)
}

// Join re-renders tokens separated by single spaces, matching the
// tokenization round-trip invariant for single-space-separated input.
func Join(tokens []string) string {
	return strings.Join(tokens, " ")
}
