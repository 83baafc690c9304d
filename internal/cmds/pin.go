package cmds

import (
	"github.com/vvb333007/gopshell/internal/dispatch"
	"github.com/vvb333007/gopshell/internal/shellerr"
	"github.com/vvb333007/gopshell/internal/task"
)

func (s *Shell) cmdPin(ctx *dispatch.Context, argv []string) shellerr.Code {
	if len(argv) < 2 {
		return shellerr.MissingArg
	}
	t := task.NewForeground("pin")
	result, code := s.vm().Run(t, argv[1:], s.PollKeypress)
	for _, line := range result.Output {
		s.printf("%s\r\n", line)
	}
	return code
}

func (s *Shell) cmdCount(ctx *dispatch.Context, argv []string) shellerr.Code {
	return s.runCount(argv)
}
