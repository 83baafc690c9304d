package cmds

import (
	"strconv"

	"github.com/vvb333007/gopshell/internal/dispatch"
	"github.com/vvb333007/gopshell/internal/shellerr"
	"github.com/vvb333007/gopshell/internal/token"
	"github.com/vvb333007/gopshell/internal/uart"
)

func (s *Shell) registerUARTDirectory() {
	dispatch.Register(&dispatch.Directory{
		Name:   "uart",
		Prompt: "%s-uart%d>",
		Keywords: []dispatch.Keyword{
			{Name: "baud", Handler: s.cmdUARTBaud, Argc: 1, Brief: "set baud rate"},
			{Name: "up", Handler: s.cmdUARTUp, Argc: dispatch.NoArgs, Brief: "open the port"},
			{Name: "down", Handler: s.cmdUARTDown, Argc: dispatch.NoArgs, Brief: "close the port"},
			{Name: "write", Handler: s.cmdUARTWrite, Argc: dispatch.ManyArgs, Brief: "write text"},
			{Name: "read", Handler: s.cmdUARTRead, Argc: dispatch.NoArgs, Brief: "read available bytes"},
			{Name: "quit", Handler: s.cmdExit, Argc: dispatch.NoArgs, Brief: "leave the uart directory"},
		},
	})
}

func (s *Shell) cmdUART(ctx *dispatch.Context, argv []string) shellerr.Code {
	n, err := strconv.Atoi(argv[1])
	if err != nil {
		return shellerr.BadArg(1)
	}
	if _, ok := s.UARTs[n]; !ok {
		s.UARTs[n] = uart.NewSession(n)
	}
	ctx.Switch("uart", n)
	return shellerr.Success
}

func (s *Shell) session(ctx *dispatch.Context) *uart.Session {
	sess, ok := s.UARTs[ctx.Value]
	if !ok {
		sess = uart.NewSession(ctx.Value)
		s.UARTs[ctx.Value] = sess
	}
	return sess
}

func (s *Shell) cmdUARTBaud(ctx *dispatch.Context, argv []string) shellerr.Code {
	baud, err := strconv.ParseUint(argv[1], 10, 32)
	if err != nil {
		return shellerr.BadArg(1)
	}
	if err := s.session(ctx).SetBaud(uint32(baud)); err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	return shellerr.Success
}

func (s *Shell) cmdUARTUp(ctx *dispatch.Context, argv []string) shellerr.Code {
	if err := s.session(ctx).Open(); err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	return shellerr.Success
}

func (s *Shell) cmdUARTDown(ctx *dispatch.Context, argv []string) shellerr.Code {
	if err := s.session(ctx).Close(); err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	return shellerr.Success
}

func (s *Shell) cmdUARTWrite(ctx *dispatch.Context, argv []string) shellerr.Code {
	text := token.ExpandEscapes(argv[1:])
	if _, err := s.session(ctx).Write([]byte(text)); err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	return shellerr.Success
}

func (s *Shell) cmdUARTRead(ctx *dispatch.Context, argv []string) shellerr.Code {
	buf := make([]byte, 256)
	n, err := s.session(ctx).ReadTimeout(buf, 0)
	if err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	s.printf("%q\r\n", buf[:n])
	return shellerr.Success
}
