package cmds

import (
	"strconv"

	"github.com/vvb333007/gopshell/internal/dispatch"
	"github.com/vvb333007/gopshell/internal/shellerr"
	"github.com/vvb333007/gopshell/internal/token"
)

func (s *Shell) registerAliasDirectory() {
	dispatch.Register(&dispatch.Directory{
		Name:   "alias",
		Prompt: "%s-alias>",
		Keywords: []dispatch.Keyword{
			{Name: "list", Handler: s.cmdAliasList, Argc: dispatch.NoArgs, Brief: "list recorded lines"},
			{Name: "delete", Handler: s.cmdAliasDelete, Argc: dispatch.ManyArgs, Brief: "delete [all|N]"},
			{Name: "quit", Handler: s.cmdExit, Argc: dispatch.NoArgs, Brief: "leave alias editing"},
			{Name: "*", Handler: s.cmdAliasAppend, Argc: dispatch.ManyArgs},
		},
	})
}

// cmdAliasEnter is "alias NAME" in the main directory: it enters alias
// editing mode, creating the alias if it doesn't exist yet.
func (s *Shell) cmdAliasEnter(ctx *dispatch.Context, argv []string) shellerr.Code {
	name := argv[1]
	s.Aliases.Get(name)
	ctx.SwitchNamed("alias", name)
	return shellerr.Success
}

func (s *Shell) cmdAliasList(ctx *dispatch.Context, argv []string) shellerr.Code {
	a, ok := s.Aliases.Lookup(ctx.Name)
	if !ok {
		return shellerr.Failed
	}
	for i, line := range a.List() {
		s.printf("%3d  %s\r\n", i, line)
	}
	return shellerr.Success
}

func (s *Shell) cmdAliasDelete(ctx *dispatch.Context, argv []string) shellerr.Code {
	a, ok := s.Aliases.Lookup(ctx.Name)
	if !ok {
		return shellerr.Failed
	}
	if len(argv) < 2 {
		return shellerr.MissingArg
	}
	if argv[1] == "all" {
		a.Delete(0, true)
		return shellerr.Success
	}
	n, err := strconv.Atoi(argv[1])
	if err != nil {
		return shellerr.BadArg(1)
	}
	if err := a.Delete(n, false); err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	return shellerr.Success
}

func (s *Shell) cmdAliasAppend(ctx *dispatch.Context, argv []string) shellerr.Code {
	a, ok := s.Aliases.Lookup(ctx.Name)
	if !ok {
		return shellerr.Failed
	}
	a.Append(token.Join(argv))
	return shellerr.Success
}

// cmdExec implements "exec NAME…": run each named alias's recorded lines
// in order.
func (s *Shell) cmdExec(ctx *dispatch.Context, argv []string) shellerr.Code {
	if len(argv) < 2 {
		return shellerr.MissingArg
	}
	for _, name := range argv[1:] {
		if err := s.Aliases.Run(name); err != nil {
			s.printf("%% %v\r\n", err)
			return shellerr.Failed
		}
	}
	return shellerr.Success
}
