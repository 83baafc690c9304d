package dispatch

import (
	"testing"

	"github.com/vvb333007/gopshell/internal/shellerr"
	"github.com/vvb333007/gopshell/internal/token"
)

func freshRegistry(t *testing.T) {
	t.Helper()
	registry = map[string]*Directory{}
}

func TestResolvePrefixAndArgc(t *testing.T) {
	freshRegistry(t)
	var got []string
	Register(&Directory{
		Name: Main,
		Keywords: []Keyword{
			{Name: "pin", Argc: ManyArgs, Brief: "x", Handler: func(ctx *Context, argv []string) shellerr.Code {
				got = argv
				return shellerr.Success
			}},
			{Name: "print", Argc: 1, Brief: "x", Handler: func(ctx *Context, argv []string) shellerr.Code {
				got = argv
				return shellerr.Success
			}},
		},
	})
	d := &Dispatcher{}
	ctx := NewContext(Main, 0)

	d.Dispatch(ctx, token.Tokenize("pi 2 out"))
	if len(got) != 3 || got[0] != "pi" {
		t.Fatalf("prefix dispatch got %v", got)
	}

	got = nil
	d.Dispatch(ctx, token.Tokenize("print hello"))
	if len(got) != 2 {
		t.Fatalf("exact-argc dispatch got %v", got)
	}
}

func TestResolveMissingArgVsNotFound(t *testing.T) {
	freshRegistry(t)
	Register(&Directory{
		Name: Main,
		Keywords: []Keyword{
			{Name: "write", Argc: 2, Brief: "x", Handler: func(ctx *Context, argv []string) shellerr.Code {
				return shellerr.Success
			}},
		},
	})
	d := &Dispatcher{}
	ctx := NewContext(Main, 0)

	kw, code := d.resolve(ctx, []string{"write", "onlyone"})
	if kw != nil || code != shellerr.MissingArg {
		t.Fatalf("wrong argc: kw=%v code=%v, want nil/MissingArg", kw, code)
	}

	kw, code = d.resolve(ctx, []string{"bogus"})
	if kw != nil || code != shellerr.NotFound {
		t.Fatalf("unknown keyword: kw=%v code=%v, want nil/NotFound", kw, code)
	}
}

func TestStripBackgroundMarker(t *testing.T) {
	freshRegistry(t)
	var gotArgv []string
	var bgCalls int
	Register(&Directory{
		Name: Main,
		Keywords: []Keyword{
			{Name: "run", Argc: ManyArgs, Brief: "x", Handler: func(ctx *Context, argv []string) shellerr.Code {
				gotArgv = argv
				return shellerr.Success
			}},
		},
	})
	d := &Dispatcher{}
	d.OnBackground = func(ctx *Context, rec *token.Record) { bgCalls++ }
	ctx := NewContext(Main, 0)

	d.Dispatch(ctx, token.Tokenize("run a b &"))
	if bgCalls != 1 {
		t.Fatalf("OnBackground calls = %d, want 1", bgCalls)
	}

	d.Dispatch(ctx, token.Tokenize("run a b"))
	if len(gotArgv) != 3 || gotArgv[2] != "b" {
		t.Fatalf("foreground argv = %v", gotArgv)
	}
}

func TestContextSwitchAndClone(t *testing.T) {
	freshRegistry(t)
	Register(&Directory{Name: Main})
	Register(&Directory{Name: "uart"})

	ctx := NewContext(Main, 0)
	if !ctx.Switch("uart", 3) {
		t.Fatalf("Switch to registered directory failed")
	}
	if ctx.Dir.Name != "uart" || ctx.Value != 3 {
		t.Fatalf("Switch did not update Dir/Value: %+v", ctx)
	}
	if ctx.Switch("missing", 1) {
		t.Fatalf("Switch to unregistered directory should fail")
	}

	if !ctx.SwitchNamed("uart", "foo") {
		t.Fatalf("SwitchNamed failed")
	}
	clone := ctx.Clone()
	if clone.Name != "foo" || clone.Dir != ctx.Dir {
		t.Fatalf("Clone did not copy Name/Dir: %+v", clone)
	}
	clone.Name = "bar"
	if ctx.Name != "foo" {
		t.Fatalf("Clone aliased the original context")
	}
}

func TestFormatPrompt(t *testing.T) {
	d := &Directory{Name: "uart", Prompt: "%s-uart%d>"}
	if got := FormatPrompt(d, "esp", 2); got != "esp-uart2>" {
		t.Errorf("FormatPrompt = %q", got)
	}
	d2 := &Directory{Name: Main, Prompt: "%s#>"}
	if got := FormatPrompt(d2, "esp", 0); got != "esp#>" {
		t.Errorf("FormatPrompt = %q", got)
	}
}
