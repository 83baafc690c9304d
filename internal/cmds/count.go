package cmds

import (
	"strconv"
	"time"

	"github.com/vvb333007/gopshell/internal/pcnt"
	"github.com/vvb333007/gopshell/internal/shellerr"
	"github.com/vvb333007/gopshell/internal/task"
)

// runCount implements "count PIN [trigger MS]": count edges on PIN for MS
// milliseconds (default 1000), printing the tally. It is interruptible the
// same way the pin VM's delay is (spec.md testable property S6).
func (s *Shell) runCount(argv []string) shellerr.Code {
	if len(argv) < 2 {
		return shellerr.MissingArg
	}
	pinNo, err := strconv.Atoi(argv[1])
	if err != nil {
		return shellerr.BadArg(1)
	}
	windowMS := 1000
	if len(argv) >= 4 && argv[2] == "trigger" {
		n, err := strconv.Atoi(argv[3])
		if err != nil {
			return shellerr.BadArg(3)
		}
		windowMS = n
	}

	unit, err := pcnt.Claim()
	if err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	defer unit.Release()

	if err := unit.Start(s.Chip, uint32(pinNo), true, true); err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	defer unit.Stop()

	t := task.NewForeground("count")
	_, completed := task.Delay(t, time.Duration(windowMS)*time.Millisecond, s.PollKeypress)

	hits := unit.Read()
	if !completed {
		s.printf("Interrupted, hits=%d\r\n", hits)
		return shellerr.Success
	}
	s.printf("hits=%d\r\n", hits)
	return shellerr.Success
}
