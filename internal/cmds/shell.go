// Package cmds wires every component package into the actual command
// directories and keyword tables the dispatcher resolves against (spec.md
// §6): "main", "uart N", "sequence N", "alias NAME", plus the cross-cutting
// commands (show, var, pin, if, every, count, ...).
package cmds

import (
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vvb333007/gopshell/internal/alias"
	"github.com/vvb333007/gopshell/internal/convar"
	"github.com/vvb333007/gopshell/internal/dispatch"
	"github.com/vvb333007/gopshell/internal/hostid"
	"github.com/vvb333007/gopshell/internal/ifengine"
	"github.com/vvb333007/gopshell/internal/linuxio"
	"github.com/vvb333007/gopshell/internal/pin"
	"github.com/vvb333007/gopshell/internal/pwm"
	"github.com/vvb333007/gopshell/internal/sequence"
	"github.com/vvb333007/gopshell/internal/shellerr"
	"github.com/vvb333007/gopshell/internal/task"
	"github.com/vvb333007/gopshell/internal/token"
	"github.com/vvb333007/gopshell/internal/uart"
)

var startTime time.Time

// Shell bundles every collaborator the command tables close over. It is
// built once at startup by cmd/gopshell/main.go and registers its
// directories into internal/dispatch's process-wide registry.
type Shell struct {
	Tasks    *task.Manager
	Chip     *linuxio.Chip
	GPIO     pin.GPIO
	Saved    *pin.Table
	Seqs     *sequence.Registry
	SeqSend  *sequence.Driver
	Aliases  *alias.Registry
	Vars     *convar.Registry
	Engine   *ifengine.Engine
	HostID   *hostid.Store
	UARTs    map[int]*uart.Session

	// qmHotkey gates whether '?' is treated as the context-help hotkey;
	// toggled live via the "bypass_qm" console variable.
	qmHotkey atomic.Bool

	// Dispatcher is the shared dispatcher used both for interactive input
	// and for replaying an alias's recorded records (exec, and ifcond
	// matches). Set by cmd/gopshell/main.go after constructing the Shell.
	Dispatcher *dispatch.Dispatcher
	rootCtx    *dispatch.Context

	// PollKeypress, if set, reports whether console input is waiting,
	// letting foreground delays/loops abort early (spec.md 4.6). nil means
	// foreground operations are only interruptible by signals.
	PollKeypress func() bool

	Print func(format string, args ...any)
}

func New(chip *linuxio.Chip, gpio pin.GPIO, hostIDPath string) *Shell {
	startTime = timeNow()
	s := &Shell{
		Tasks:   task.NewManager(),
		Chip:    chip,
		GPIO:    gpio,
		Saved:   pin.NewTable(),
		Seqs:    sequence.NewRegistry(),
		Aliases: alias.NewRegistry(),
		Vars:    convar.NewRegistry(),
		HostID:  hostid.Load(hostIDPath),
		UARTs:   map[int]*uart.Session{},
	}
	s.qmHotkey.Store(true)
	s.SeqSend = sequence.NewDriver(chip, s.Seqs)
	return s
}

// QMHotkeyEnabled reports whether '?' should trigger context help, per the
// "bypass_qm" console variable (spec.md 4.11, original espshell.c's
// bypass_qm convar).
func (s *Shell) QMHotkeyEnabled() bool { return s.qmHotkey.Load() }

// timeNow returns the current time; New uses it to set the package-level
// startTime once.
func timeNow() time.Time { return time.Now() }

func (s *Shell) vm() *pin.VM {
	return &pin.VM{GPIO: s.GPIO, PWM: pwmAdapter{}, Seq: s.SeqSend, Saved: s.Saved}
}

type pwmAdapter struct{}

func (pwmAdapter) Attach(p int, freq uint32, duty float64) error { return pwm.Attach(p, freq, duty) }

// Register builds every directory and installs them into the dispatch
// registry. Call once at startup, before the REPL loop starts.
func (s *Shell) Register() {
	s.Engine = ifengine.NewEngine(s.Chip, s.GPIO.(ifengine.Levels), s.Tasks, s.Aliases)
	s.Aliases.Dispatch = s.dispatchAlias

	dispatch.Register(&dispatch.Directory{
		Name:   dispatch.Main,
		Prompt: "%s#>",
		Keywords: []dispatch.Keyword{
			{Name: "?", Handler: s.cmdHelp, Argc: dispatch.ManyArgs, Brief: "show help"},
			{Name: "pin", Handler: s.cmdPin, Argc: dispatch.ManyArgs, Brief: "pin micro-VM"},
			{Name: "count", Handler: s.cmdCount, Argc: dispatch.ManyArgs, Brief: "pulse counter"},
			{Name: "if", Handler: s.cmdIf, Argc: dispatch.ManyArgs, Brief: "edge/conditional trigger"},
			{Name: "every", Handler: s.cmdEvery, Argc: dispatch.ManyArgs, Brief: "periodic trigger"},
			{Name: "var", Handler: s.cmdVar, Argc: dispatch.ManyArgs, Brief: "console variables"},
			{Name: "alias", Handler: s.cmdAliasEnter, Argc: 1, Brief: "edit a named alias"},
			{Name: "exec", Handler: s.cmdExec, Argc: dispatch.ManyArgs, Brief: "run aliases"},
			{Name: "show", Handler: s.cmdShow, Argc: dispatch.ManyArgs, Brief: "show state"},
			{Name: "uart", Handler: s.cmdUART, Argc: 1, Brief: "enter uart directory"},
			{Name: "sequence", Handler: s.cmdSequence, Argc: 1, Brief: "enter sequence directory"},
			{Name: "tty", Handler: s.cmdTTY, Argc: 1, Brief: "open uart N (the active console stays as it is)"},
			{Name: "hostid", Handler: s.cmdHostID, Argc: 1, Brief: "set prompt host id"},
			{Name: "cpu", Handler: s.cmdCPU, Argc: dispatch.NoArgs, Brief: "cpu info"},
			{Name: "uptime", Handler: s.cmdUptime, Argc: dispatch.NoArgs, Brief: "shell uptime"},
			{Name: "kill", Handler: s.cmdKill, Argc: dispatch.ManyArgs, Brief: "send a signal to a task"},
			{Name: "suspend", Handler: s.cmdSuspend, Argc: dispatch.NoArgs, Brief: "suspend the foreground task"},
			{Name: "resume", Handler: s.cmdResume, Argc: dispatch.NoArgs, Brief: "resume the foreground task"},
			{Name: "exit", Handler: s.cmdExit, Argc: dispatch.NoArgs, Brief: "leave the current directory"},
		},
	})

	s.registerUARTDirectory()
	s.registerSequenceDirectory()
	s.registerAliasDirectory()
	s.registerConvars()

	s.rootCtx = dispatch.NewContext(dispatch.Main, 0)
}

// registerConvars binds the handful of host variables the original
// espshell.c registers via convar_add in its own setup() (see
// DESIGN.md): PWM duty resolution, LEDC channel-slot stride, and the
// '?' context-help hotkey toggle. Unlike internal/convar itself (a bare
// registry), these bindings are gopshell's concrete application state.
func (s *Shell) registerConvars() {
	s.Vars.Add("ledc_res", convar.Unsigned, 4,
		func() float64 { return float64(pwm.ResolutionBits()) },
		func(v float64) error { return pwm.SetResolutionBits(int(v)) },
	)
	s.Vars.Add("pwm_ch_inc", convar.Unsigned, 1,
		func() float64 { return float64(pwm.ChannelIncrement()) },
		func(v float64) error { return pwm.SetChannelIncrement(int(v)) },
	)
	s.Vars.Add("bypass_qm", convar.Unsigned, 1,
		func() float64 {
			if s.qmHotkey.Load() {
				return 0
			}
			return 1
		},
		func(v float64) error {
			s.qmHotkey.Store(v == 0)
			return nil
		},
	)
}

// dispatchAlias runs one recorded alias line against a fresh root-directory
// context, satisfying alias.Registry.Dispatch. Each replayed record gets
// its own context copy so directory-switching commands inside an alias
// (e.g. "uart 0") don't leak into the caller's active directory.
func (s *Shell) dispatchAlias(rec *token.Record) {
	if s.Dispatcher == nil || s.rootCtx == nil {
		return
	}
	s.Dispatcher.Dispatch(s.rootCtx.Clone(), rec)
}

func (s *Shell) printf(format string, args ...any) {
	if s.Print != nil {
		s.Print(format, args...)
	}
}

func (s *Shell) cmdHelp(ctx *dispatch.Context, argv []string) shellerr.Code {
	if ctx.Dir == nil {
		return shellerr.Failed
	}
	if len(argv) > 1 {
		for _, kw := range ctx.Dir.Keywords {
			if kw.Hidden() || !strings.HasPrefix(kw.Name, argv[1]) {
				continue
			}
			s.printf("  %-12s %s\r\n", kw.Name, kw.Brief)
			if kw.Help != "" {
				s.printf("%s\r\n", kw.Help)
			}
		}
		return shellerr.Success
	}
	s.printf("<b>%s directory<\x2f>\r\n", ctx.Dir.Name)
	names := make([]string, 0, len(ctx.Dir.Keywords))
	byName := map[string]string{}
	for _, kw := range ctx.Dir.Keywords {
		if kw.Hidden() {
			continue
		}
		if _, ok := byName[kw.Name]; !ok {
			names = append(names, kw.Name)
		}
		byName[kw.Name] = kw.Brief
	}
	sort.Strings(names)
	for _, n := range names {
		s.printf("  %-12s %s\r\n", n, byName[n])
	}
	return shellerr.Success
}

func (s *Shell) cmdCPU(ctx *dispatch.Context, argv []string) shellerr.Code {
	s.printf("arch: %s, goroutines: %d, NumCPU: %d\r\n", runtime.GOARCH, runtime.NumGoroutine(), runtime.NumCPU())
	return shellerr.Success
}

func (s *Shell) cmdUptime(ctx *dispatch.Context, argv []string) shellerr.Code {
	s.printf("up %s\r\n", time.Since(startTime).Round(time.Second))
	return shellerr.Success
}

func (s *Shell) cmdHostID(ctx *dispatch.Context, argv []string) shellerr.Code {
	if err := s.HostID.Set(argv[1]); err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	return shellerr.Success
}

func (s *Shell) cmdTTY(ctx *dispatch.Context, argv []string) shellerr.Code {
	n, err := strconv.Atoi(argv[1])
	if err != nil {
		return shellerr.BadArg(1)
	}
	sess, ok := s.UARTs[n]
	if !ok {
		sess = uart.NewSession(n)
		s.UARTs[n] = sess
	}
	if err := sess.Open(); err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	s.printf("tty %d opened; the active console is not switched\r\n", n)
	return shellerr.Success
}

func (s *Shell) cmdKill(ctx *dispatch.Context, argv []string) shellerr.Code {
	if len(argv) < 2 {
		return shellerr.MissingArg
	}
	sig := task.SigTerm
	idArg := argv[1]
	if strings.HasPrefix(argv[1], "-") {
		switch argv[1] {
		case "-term", "-15":
			sig = task.SigTerm
		case "-hup", "-1":
			sig = task.SigHup
		case "-kill", "-9":
			sig = task.SigKill
		default:
			return shellerr.BadArg(1)
		}
		if len(argv) < 3 {
			return shellerr.MissingArg
		}
		idArg = argv[2]
	}
	id, err := strconv.ParseUint(idArg, 10, 64)
	if err != nil {
		return shellerr.BadArg(len(argv) - 1)
	}
	if !s.Tasks.Kill(id, sig) {
		s.printf("%% No such task %d\r\n", id)
		return shellerr.Failed
	}
	return shellerr.Success
}

func (s *Shell) cmdSuspend(ctx *dispatch.Context, argv []string) shellerr.Code {
	s.printf("%% suspend: not implemented for the foreground task in this build\r\n")
	return shellerr.Success
}

func (s *Shell) cmdResume(ctx *dispatch.Context, argv []string) shellerr.Code {
	return shellerr.Success
}

func (s *Shell) cmdExit(ctx *dispatch.Context, argv []string) shellerr.Code {
	ctx.Switch(dispatch.Main, 0)
	return shellerr.Success
}
