// Package editor implements the single-line command editor (C3) and its
// history (C4), grounded on kylelemons-goat/term's TTY line-mode state
// machine: a byte-at-a-time Feed() that mutates an edit buffer and batches
// screen output for the caller to flush before the next blocking read.
package editor

import (
	"bytes"
	"strconv"

	"github.com/vvb333007/gopshell/internal/markup"
)

const (
	ctrlA = 1
	ctrlB = 2
	ctrlC = 3
	ctrlD = 4
	ctrlE = 5
	ctrlF = 6
	bel   = 7
	ctrlH = 8
	tab   = 9
	lf    = 10
	ctrlK = 11
	ctrlL = 12
	cr    = 13
	ctrlO = 15
	ctrlP = 16
	ctrlR = 18
	ctrlZ = 26
	esc   = 27
	del   = 127
)

// escState tracks the small sub-states reachable after ESC.
type escState int

const (
	escNone escState = iota
	escDigits
	escSeenBackslash
)

// Event is what Feed returns after consuming one byte.
type Event struct {
	Submitted bool
	Line      string
	Inject    string // "suspend" or "exit", from Ctrl-C / Ctrl-Z
	Help      bool   // '?' pressed — caller should show context help for FirstToken()
}

// Editor is one line-editing session bound to a console + markup writer.
type Editor struct {
	buf    []byte
	cursor int

	echoSuppressed bool // leading '@' — password entry
	crSeen         bool

	esc       escState
	escDigits []byte

	searching  bool
	searchBuf  []byte
	prevBuf    []byte // buffer saved when entering search, restored on abort

	prompt string
	hostID string

	history       *History
	markupWriter  *markup.Writer
	questionBypass bool // when true, '?' is a literal character, not help

	out bytes.Buffer
}

func New(hist *History, mw *markup.Writer) *Editor {
	return &Editor{history: hist, markupWriter: mw}
}

// SetPrompt sets the prompt string drawn on the next redraw.
func (e *Editor) SetPrompt(p string) { e.prompt = p }

// SetHostID stores the short host-id prefix. Redraw does not read it: the
// prompt given to SetPrompt already carries the host id.
func (e *Editor) SetHostID(id string) { e.hostID = id }

// SetQuestionBypass disables the "? shows help" behavior (used while typing
// free text that legitimately contains '?').
func (e *Editor) SetQuestionBypass(v bool) { e.questionBypass = v }

// Flush returns and clears the batched output buffer.
func (e *Editor) Flush() []byte {
	b := e.out.Bytes()
	cp := make([]byte, len(b))
	copy(cp, b)
	e.out.Reset()
	return cp
}

func (e *Editor) echo(b ...byte) {
	if e.echoSuppressed {
		return
	}
	e.out.Write(b)
}

func (e *Editor) echoStr(s string) { e.echo([]byte(s)...) }

// Redraw erases the current line and redraws prompt+buffer+cursor.
func (e *Editor) Redraw() {
	e.out.WriteString("\r\x1b[K")
	e.out.WriteString(e.markupWriter.Render(e.prompt))
	if !e.echoSuppressed {
		e.out.Write(e.buf)
		if back := len(e.buf) - e.cursor; back > 0 {
			for i := 0; i < back; i++ {
				e.out.WriteByte('\b')
			}
		}
	}
}

// Feed consumes one input byte and advances the editor's state machine.
func (e *Editor) Feed(b byte) Event {
	if b < 0x20 && b != cr && b != lf && b != tab {
		e.markupWriter.NoteControlByte()
	}

	if e.searching {
		return e.feedSearch(b)
	}
	if e.esc != escNone {
		return e.feedEscape(b)
	}

	switch b {
	case cr:
		e.crSeen = true
		return e.submit()
	case lf:
		if e.crSeen {
			e.crSeen = false
			return Event{}
		}
		return e.submit()
	case ctrlA:
		e.cursor = 0
		e.Redraw()
	case ctrlE:
		e.cursor = len(e.buf)
		e.Redraw()
	case ctrlB:
		if e.cursor > 0 {
			e.cursor--
			e.echo('\b')
		}
	case ctrlF:
		if e.cursor < len(e.buf) {
			e.echoStr(string(e.buf[e.cursor]))
			e.cursor++
		}
	case ctrlD, ctrlH, del:
		if b == ctrlD {
			e.deleteForward()
		} else {
			e.deleteBackward()
		}
	case ctrlK:
		e.buf = e.buf[:e.cursor]
		e.Redraw()
	case ctrlL:
		e.markupWriter.SetMode(markup.On)
		e.out.WriteString("\x1b[2J\x1b[H")
		e.out.WriteString("<i>tip: type '?' for help<\x2f>\r\n")
		e.Redraw()
	case ctrlC:
		e.reset()
		return Event{Inject: "suspend"}
	case ctrlZ:
		e.reset()
		return Event{Inject: "exit"}
	case ctrlR:
		e.searching = true
		e.searchBuf = e.searchBuf[:0]
		e.prevBuf = append([]byte(nil), e.buf...)
		e.out.WriteString("\r\n(reverse-i-search)`': ")
	case ctrlO:
		if line, ok := e.history.Prev(); ok {
			e.setBuf([]byte(line))
		}
	case ctrlP:
		if line, ok := e.history.Next(); ok {
			e.setBuf([]byte(line))
		}
	case tab:
		e.jumpToken()
	case esc:
		e.esc = escDigits
		e.escDigits = e.escDigits[:0]
	case '@':
		if len(e.buf) == 0 {
			e.echoSuppressed = true
			return Event{}
		}
		e.insert(b)
	case '?':
		if e.cursor == 0 && !e.questionBypass {
			return Event{Help: true}
		}
		e.insert(b)
	default:
		e.insert(b)
	}
	return Event{}
}

func (e *Editor) reset() {
	e.buf = e.buf[:0]
	e.cursor = 0
	e.echoSuppressed = false
}

func (e *Editor) setBuf(b []byte) {
	e.buf = append([]byte(nil), b...)
	e.cursor = len(e.buf)
	e.Redraw()
}

func (e *Editor) submit() Event {
	e.out.WriteString("\r\n")
	line := string(e.buf)
	e.history.Add(line)
	e.reset()
	return Event{Submitted: true, Line: line}
}

func (e *Editor) insert(b byte) {
	if e.cursor == len(e.buf) {
		e.buf = append(e.buf, b)
	} else {
		e.buf = append(e.buf, 0)
		copy(e.buf[e.cursor+1:], e.buf[e.cursor:len(e.buf)-1])
		e.buf[e.cursor] = b
	}
	e.cursor++
	if e.cursor == len(e.buf) {
		e.echo(b)
		return
	}
	e.Redraw()
}

func (e *Editor) deleteForward() {
	if e.cursor >= len(e.buf) {
		return
	}
	copy(e.buf[e.cursor:], e.buf[e.cursor+1:])
	e.buf = e.buf[:len(e.buf)-1]
	e.Redraw()
}

func (e *Editor) deleteBackward() {
	if e.cursor == 0 {
		return
	}
	copy(e.buf[e.cursor-1:], e.buf[e.cursor:])
	e.buf = e.buf[:len(e.buf)-1]
	e.cursor--
	e.echo('\b')
	e.Redraw()
}

func (e *Editor) jumpToken() {
	n := len(e.buf)
	if e.cursor >= n {
		e.cursor = 0
		e.Redraw()
		return
	}
	i := e.cursor
	for i < n && e.buf[i] != ' ' {
		i++
	}
	for i < n && e.buf[i] == ' ' {
		i++
	}
	if i >= n {
		i = 0
	}
	e.cursor = i
	e.Redraw()
}

// deleteWordBack implements Esc-Backspace.
func (e *Editor) deleteWordBack() {
	if e.cursor == 0 {
		return
	}
	i := e.cursor
	for i > 0 && e.buf[i-1] == ' ' {
		i--
	}
	for i > 0 && e.buf[i-1] != ' ' {
		i--
	}
	copy(e.buf[i:], e.buf[e.cursor:])
	e.buf = e.buf[:len(e.buf)-(e.cursor-i)]
	e.cursor = i
	e.Redraw()
}

func (e *Editor) feedEscape(b byte) Event {
	switch e.esc {
	case escDigits:
		if b >= '0' && b <= '9' {
			e.escDigits = append(e.escDigits, b)
			return Event{}
		}
		if b == esc {
			e.esc = escNone
			if len(e.escDigits) > 0 {
				if v, err := strconv.Atoi(string(e.escDigits)); err == nil && v != 0 && v < 256 {
					e.insert(byte(v))
				}
			}
			return Event{}
		}
		if b == ctrlH || b == del {
			e.esc = escNone
			e.deleteWordBack()
			return Event{}
		}
		// Anything else aborts the escape sequence and is reprocessed as a
		// plain byte.
		e.esc = escNone
		return e.Feed(b)
	}
	e.esc = escNone
	return Event{}
}

func (e *Editor) feedSearch(b byte) Event {
	switch b {
	case cr, lf:
		e.searching = false
		if line, ok := e.history.Search(string(e.searchBuf)); ok {
			e.setBuf([]byte(line))
		} else {
			e.out.WriteByte(bel)
			e.setBuf(e.prevBuf)
		}
		return Event{}
	case ctrlC:
		e.searching = false
		e.setBuf(e.prevBuf)
		return Event{}
	case ctrlH, del:
		if len(e.searchBuf) > 0 {
			e.searchBuf = e.searchBuf[:len(e.searchBuf)-1]
		}
	default:
		if b >= 0x20 {
			e.searchBuf = append(e.searchBuf, b)
		}
	}
	e.out.WriteString("\r\n(reverse-i-search)`")
	e.out.Write(e.searchBuf)
	e.out.WriteString("': ")
	return Event{}
}

// FirstToken returns the current buffer's leading whitespace-delimited
// token, for "? shows context help for the current first token".
func (e *Editor) FirstToken() string {
	i := 0
	for i < len(e.buf) && e.buf[i] != ' ' {
		i++
	}
	return string(e.buf[:i])
}
