package cmds

import (
	"github.com/vvb333007/gopshell/internal/dispatch"
	"github.com/vvb333007/gopshell/internal/shellerr"
)

// cmdVar implements "var" (list all), "var NAME" (show one), and
// "var NAME VALUE" (assign), per spec.md 4.11.
func (s *Shell) cmdVar(ctx *dispatch.Context, argv []string) shellerr.Code {
	if len(argv) == 1 {
		for _, c := range s.Vars.All() {
			s.printf("%-20s = %s\r\n", c.Name, c.Format())
		}
		return shellerr.Success
	}
	cell, err := s.Vars.Lookup(argv[1])
	if err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	if len(argv) == 2 {
		s.printf("%s = %s\r\n", cell.Name, cell.Format())
		return shellerr.Success
	}
	v, err := cell.ParseValue(argv[2])
	if err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.BadArg(2)
	}
	if err := cell.Set(v); err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	return shellerr.Success
}
