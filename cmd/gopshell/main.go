// Command gopshell is the REPL entrypoint: it wires the console, line
// editor, dispatcher, and every component package into a running shell
// session, the Linux analogue of the firmware's app_main() + shell_start().
package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/vvb333007/gopshell/internal/cmds"
	"github.com/vvb333007/gopshell/internal/console"
	"github.com/vvb333007/gopshell/internal/dispatch"
	"github.com/vvb333007/gopshell/internal/editor"
	"github.com/vvb333007/gopshell/internal/linuxio"
	"github.com/vvb333007/gopshell/internal/markup"
	"github.com/vvb333007/gopshell/internal/task"
	"github.com/vvb333007/gopshell/internal/token"
)

func main() {
	gpioChip := flag.Int("gpio-chip", 0, "GPIO chardev index (/dev/gpiochipN)")
	hostIDFile := flag.String("hostid-file", "/var/lib/gopshell/hostid", "path used to persist the prompt host id")
	historySize := flag.Int("history", 20, "line editor history depth")
	flag.Parse()

	chip, err := linuxio.OpenChip(*gpioChip)
	if err != nil {
		log.Fatalf("gopshell: open gpiochip%d: %v", *gpioChip, err)
	}
	defer chip.Close()

	stdio, err := console.NewStdio()
	if err != nil {
		log.Fatalf("gopshell: raw mode: %v", err)
	}
	defer stdio.Close()
	con := console.New(stdio)

	plain := markup.NewWriter(markup.Off)
	shell := cmds.New(chip, linuxio.NewPinDriver(chip), *hostIDFile)
	shell.Print = func(format string, args ...any) {
		con.Write([]byte(plain.Render(crlf(fmt.Sprintf(format, args...)))))
	}
	shell.Register()

	disp := &dispatch.Dispatcher{
		HistoryEnabled: true,
		Print:          shell.Print,
	}
	shell.Dispatcher = disp
	hist := editor.NewHistory(*historySize)
	mw := markup.NewWriter(markup.Auto)
	disp.OnHistory = func(line string) {}
	disp.OnBackground = func(ctx *dispatch.Context, rec *token.Record) {
		bgCtx := ctx.Clone()
		rec.HasBackground = false
		fg := token.New(rec.Raw, rec.Tokens[:rec.NEff])
		shell.Tasks.Spawn(rec.Tokens[0], rec.Priority, func(t *task.Task) {
			defer rec.Unref()
			disp.Dispatch(bgCtx, fg)
		}, func(t *task.Task) {
			shell.Print("%% Task %d (%s) finished: %s\r\n", t.ID, t.Name, t.Status())
		})
	}

	ed := editor.New(hist, mw)
	ed.SetHostID(shell.HostID.Get())

	ctx := dispatch.NewContext(dispatch.Main, 0)
	con.WaitUp()

	buf := make([]byte, 1)
	for {
		dir := ctx.Dir
		if dir == nil {
			dir, _ = dispatch.Lookup(dispatch.Main)
			ctx.Dir = dir
		}
		prompt := dispatch.FormatPrompt(dir, shell.HostID.Get(), ctx.Value)
		if ctx.Name != "" {
			prompt = shell.HostID.Get() + "-" + dir.Name + "(" + ctx.Name + ")>"
		}
		ed.SetPrompt(prompt)
		ed.Redraw()
		con.Write(ed.Flush())

		n, err := con.ReadTimeout(buf, 200*time.Millisecond)
		if err != nil || n == 0 {
			continue
		}
		ed.SetQuestionBypass(!shell.QMHotkeyEnabled())
		ev := ed.Feed(buf[0])
		con.Write(ed.Flush())

		switch {
		case ev.Help:
			disp.Dispatch(ctx, token.Tokenize("? "+ed.FirstToken()))
		case ev.Inject != "":
			disp.Dispatch(ctx, token.Tokenize(ev.Inject))
		case ev.Submitted:
			if ev.Line == "" {
				continue
			}
			disp.Dispatch(ctx, token.Tokenize(ev.Line))
		}
	}
}

// crlf turns bare "\n" into "\r\n": raw mode disables OPOST/ONLCR, so the
// terminal won't do this translation for us. Handlers that already write
// "\r\n" literally pass through unchanged.
func crlf(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' && (i == 0 || s[i-1] != '\r') {
			b.WriteByte('\r')
		}
		b.WriteByte(c)
	}
	return b.String()
}
