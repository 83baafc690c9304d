package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vvb333007/gopshell/internal/shellerr"
	"github.com/vvb333007/gopshell/internal/token"
)

// MaxTaskPriority bounds the "&N" background priority suffix.
const MaxTaskPriority = 24

// Dispatcher resolves and runs tokenized records against a Context.
type Dispatcher struct {
	// HistoryEnabled gates step 2 of the algorithm.
	HistoryEnabled bool
	// OnHistory is called with the raw line when history is enabled.
	OnHistory func(line string)
	// OnBackground is handed the record (already Ref'd) for async
	// execution; nil means background execution isn't wired up yet.
	OnBackground func(ctx *Context, rec *token.Record)
	// Print emits dispatcher diagnostics (errors, not handler output).
	Print func(format string, args ...any)
}

// Dispatch runs one already-tokenized record against ctx, per spec.md
// 4.5's seven-step algorithm.
func (d *Dispatcher) Dispatch(ctx *Context, rec *token.Record) {
	if len(rec.Tokens) > 0 && strings.HasPrefix(rec.Tokens[0], "//") {
		return
	}
	if d.HistoryEnabled && d.OnHistory != nil && rec.Raw != "" {
		d.OnHistory(rec.Raw)
	}

	argv := stripBackground(rec)

	if len(argv) == 0 {
		return
	}

	if rec.Handler != nil {
		// Alias reuse: the handler was already resolved once.
		d.invoke(ctx, rec, argv, resolvedOf(rec))
		return
	}

	kw, code := d.resolve(ctx, argv)
	if kw == nil {
		d.report(code, argv)
		return
	}

	if rec.HasBackground && d.OnBackground != nil {
		rec.Ref()
		d.OnBackground(ctx, rec)
		return
	}
	d.invoke(ctx, rec, argv, kw)
}

func resolvedOf(rec *token.Record) *Keyword {
	kw, _ := rec.Handler.(*Keyword)
	return kw
}

func (d *Dispatcher) invoke(ctx *Context, rec *token.Record, argv []string, kw *Keyword) {
	if kw == nil || kw.Handler == nil {
		d.report(shellerr.NotFound, argv)
		return
	}
	code := kw.Handler(ctx, argv)
	d.report(code, argv)
}

func (d *Dispatcher) report(code shellerr.Code, argv []string) {
	if d.Print == nil {
		return
	}
	switch code {
	case shellerr.Success, shellerr.Failed:
		return
	case shellerr.MissingArg:
		d.Print("%% Wrong number of arguments")
	case shellerr.NotFound:
		first := ""
		if len(argv) > 0 {
			first = argv[0]
		}
		d.Print("%% Command not found: %q", first)
	default:
		if idx, ok := code.ArgIndex(); ok && idx < len(argv) {
			d.Print("%% Invalid argument #%d: %q, see \"%s ?\"", idx, argv[idx], argv[0])
		}
	}
}

// stripBackground detects a trailing "&" or "&N" token, sets
// rec.HasBackground/HasPriority/Priority, and returns the effective argv
// (marker stripped).
func stripBackground(rec *token.Record) []string {
	argv := rec.Tokens
	n := len(argv)
	if n == 0 {
		return argv
	}
	last := argv[n-1]
	if last == "&" {
		rec.HasBackground = true
		rec.NEff = n - 1
		return argv[:n-1]
	}
	if strings.HasPrefix(last, "&") && len(last) > 1 {
		if v, err := strconv.Atoi(last[1:]); err == nil && v >= 0 && v <= MaxTaskPriority {
			rec.HasBackground = true
			rec.HasPriority = true
			rec.Priority = v
			rec.NEff = n - 1
			return argv[:n-1]
		}
	}
	rec.NEff = n
	return argv
}

// resolve finds the single qualifying Keyword for argv in ctx's active
// directory, falling back to Main. Matching is keyword-prefix on Name and
// exact on argument count (ManyArgs matches any count, NoArgs requires
// zero args after the keyword).
func (d *Dispatcher) resolve(ctx *Context, argv []string) (*Keyword, shellerr.Code) {
	name := argv[0]
	nargs := len(argv) - 1

	if ctx != nil && ctx.Dir != nil {
		if kw := findInDirectory(ctx.Dir, name, nargs); kw != nil {
			return kw, shellerr.Success
		}
	}
	if main, ok := Lookup(Main); ok && (ctx == nil || ctx.Dir == nil || ctx.Dir.Name != Main) {
		if kw := findInDirectory(main, name, nargs); kw != nil {
			return kw, shellerr.Success
		}
	}

	// Distinguish "no keyword at all" from "keyword exists, wrong argc".
	anyNameMatch := false
	if ctx != nil && ctx.Dir != nil {
		anyNameMatch = anyNameMatch || nameMatches(ctx.Dir, name)
	}
	if main, ok := Lookup(Main); ok {
		anyNameMatch = anyNameMatch || nameMatches(main, name)
	}
	if anyNameMatch {
		return nil, shellerr.MissingArg
	}
	return nil, shellerr.NotFound
}

func findInDirectory(dir *Directory, name string, nargs int) *Keyword {
	for i := range dir.Keywords {
		kw := &dir.Keywords[i]
		if !keywordMatches(kw.Name, name) {
			continue
		}
		switch kw.Argc {
		case ManyArgs:
			return kw
		default:
			if kw.Argc == nargs {
				return kw
			}
		}
	}
	return nil
}

func nameMatches(dir *Directory, name string) bool {
	for i := range dir.Keywords {
		if keywordMatches(dir.Keywords[i].Name, name) {
			return true
		}
	}
	return false
}

// keywordMatches implements the dispatcher's prefix rule: name (as typed)
// must be a non-empty prefix of the table's keyword, OR the table entry is
// the catch-all "*".
func keywordMatches(tableName, typed string) bool {
	if tableName == "*" {
		return true
	}
	if typed == "" {
		return false
	}
	return strings.HasPrefix(tableName, typed)
}

// FormatPrompt fills a directory's prompt template (e.g. "%s-uart%d>")
// with hostID and the context's payload value.
func FormatPrompt(dir *Directory, hostID string, value int) string {
	if strings.Contains(dir.Prompt, "%d") {
		return fmt.Sprintf(dir.Prompt, hostID, value)
	}
	if strings.Contains(dir.Prompt, "%s") {
		return fmt.Sprintf(dir.Prompt, hostID)
	}
	return dir.Prompt
}
