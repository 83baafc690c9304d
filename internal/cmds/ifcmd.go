package cmds

import (
	"strconv"

	"github.com/vvb333007/gopshell/internal/dispatch"
	"github.com/vvb333007/gopshell/internal/ifengine"
	"github.com/vvb333007/gopshell/internal/shellerr"
)

// cmdIf implements the "if" family:
//
//	if rising|falling PIN [high MASK] [low MASK] [rate MS] [limit N] alias NAME
//	if high|low MASK poll MS alias NAME            (conditional/polled)
//	if enable|disable|delete|clear ID
//	if save ID|* PATH
func (s *Shell) cmdIf(ctx *dispatch.Context, argv []string) shellerr.Code {
	if len(argv) < 2 {
		return shellerr.MissingArg
	}
	switch argv[1] {
	case "enable", "disable", "delete", "clear":
		return s.ifLifecycle(argv)
	case "save":
		return s.ifSave(argv, false)
	case "rising", "falling":
		return s.ifCreateEdge(argv)
	case "high", "low":
		return s.ifCreateConditional(argv)
	default:
		return shellerr.BadArg(1)
	}
}

// cmdEvery implements "every MS [delay INITMS] alias NAME" and the same
// enable/disable/delete/clear/save lifecycle verbs as "if".
func (s *Shell) cmdEvery(ctx *dispatch.Context, argv []string) shellerr.Code {
	if len(argv) < 2 {
		return shellerr.MissingArg
	}
	switch argv[1] {
	case "enable", "disable", "delete", "clear":
		return s.ifLifecycle(argv)
	case "save":
		return s.ifSave(argv, true)
	default:
		return s.ifCreatePeriodic(argv)
	}
}

func (s *Shell) ifLifecycle(argv []string) shellerr.Code {
	if len(argv) < 3 {
		return shellerr.MissingArg
	}
	id64, err := strconv.ParseUint(argv[2], 10, 16)
	if err != nil {
		return shellerr.BadArg(2)
	}
	id := uint16(id64)
	var ok bool
	switch argv[1] {
	case "enable":
		ok = s.Engine.Enable(id)
	case "disable":
		ok = s.Engine.Disable(id)
	case "delete":
		ok = s.Engine.Delete(id)
	case "clear":
		ok = s.Engine.Clear(id)
	}
	if !ok {
		s.printf("%% No such entry %d\r\n", id)
		return shellerr.Failed
	}
	return shellerr.Success
}

func (s *Shell) ifSave(argv []string, every bool) shellerr.Code {
	if len(argv) < 4 {
		return shellerr.MissingArg
	}
	all := argv[2] == "*"
	var id uint16
	if !all {
		n, err := strconv.ParseUint(argv[2], 10, 16)
		if err != nil {
			return shellerr.BadArg(2)
		}
		id = uint16(n)
	}
	if err := s.Engine.Save(id, all, argv[3]); err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	return shellerr.Success
}

// parseClauses scans trailing "high MASK"/"low MASK"/"rate MS"/"limit N"/
// "delay MS"/"poll MS" clauses (in any order) ending in "alias NAME".
func parseClauses(argv []string, start int) (sp ifengine.Spec, aliasIdx int, code shellerr.Code) {
	for i := start; i < len(argv); i++ {
		switch argv[i] {
		case "high":
			if i+1 >= len(argv) {
				return sp, 0, shellerr.MissingArg
			}
			v, err := strconv.ParseUint(argv[i+1], 0, 64)
			if err != nil {
				return sp, 0, shellerr.BadArg(i + 1)
			}
			sp.HasHigh, sp.MustHigh = true, v
			i++
		case "low":
			if i+1 >= len(argv) {
				return sp, 0, shellerr.MissingArg
			}
			v, err := strconv.ParseUint(argv[i+1], 0, 64)
			if err != nil {
				return sp, 0, shellerr.BadArg(i + 1)
			}
			sp.HasLow, sp.MustLow = true, v
			i++
		case "rate":
			if i+1 >= len(argv) {
				return sp, 0, shellerr.MissingArg
			}
			v, err := strconv.ParseUint(argv[i+1], 10, 32)
			if err != nil {
				return sp, 0, shellerr.BadArg(i + 1)
			}
			if v > 65535 {
				v = 65535
			}
			sp.HasRateLimit, sp.RateLimitMS = true, uint16(v)
			i++
		case "limit":
			if i+1 >= len(argv) {
				return sp, 0, shellerr.MissingArg
			}
			v, err := strconv.ParseUint(argv[i+1], 10, 32)
			if err != nil {
				return sp, 0, shellerr.BadArg(i + 1)
			}
			sp.HasExecLimit, sp.ExecLimit = true, uint32(v)
			i++
		case "delay":
			if i+1 >= len(argv) {
				return sp, 0, shellerr.MissingArg
			}
			v, err := strconv.ParseUint(argv[i+1], 10, 32)
			if err != nil {
				return sp, 0, shellerr.BadArg(i + 1)
			}
			sp.HasInitialDelay, sp.InitialDelayMS = true, uint32(v)
			i++
		case "poll":
			if i+1 >= len(argv) {
				return sp, 0, shellerr.MissingArg
			}
			v, err := strconv.ParseUint(argv[i+1], 10, 32)
			if err != nil {
				return sp, 0, shellerr.BadArg(i + 1)
			}
			sp.PollIntervalMS = uint32(v)
			i++
		case "alias":
			if i+1 >= len(argv) {
				return sp, 0, shellerr.MissingArg
			}
			sp.AliasName = argv[i+1]
			return sp, i + 1, shellerr.Success
		}
	}
	return sp, 0, shellerr.MissingArg
}

func (s *Shell) ifCreateEdge(argv []string) shellerr.Code {
	if len(argv) < 3 {
		return shellerr.MissingArg
	}
	pinNo, err := strconv.Atoi(argv[2])
	if err != nil {
		return shellerr.BadArg(2)
	}
	sp, _, code := parseClauses(argv, 3)
	if code != shellerr.Success {
		return code
	}
	if argv[1] == "rising" {
		sp.Class = ifengine.RisingPin
	} else {
		sp.Class = ifengine.FallingPin
	}
	sp.Pin = pinNo
	return s.createEntry(sp)
}

func (s *Shell) ifCreateConditional(argv []string) shellerr.Code {
	sp, _, code := parseClauses(argv, 1)
	if code != shellerr.Success {
		return code
	}
	sp.Class = ifengine.Conditional
	if sp.PollIntervalMS == 0 {
		return shellerr.MissingArg
	}
	return s.createEntry(sp)
}

func (s *Shell) ifCreatePeriodic(argv []string) shellerr.Code {
	ms, err := strconv.ParseUint(argv[1], 10, 32)
	if err != nil {
		return shellerr.BadArg(1)
	}
	sp, _, code := parseClauses(argv, 2)
	if code != shellerr.Success {
		return code
	}
	sp.Class = ifengine.Periodic
	sp.PollIntervalMS = uint32(ms)
	return s.createEntry(sp)
}

func (s *Shell) createEntry(sp ifengine.Spec) shellerr.Code {
	id, existed, err := s.Engine.Create(sp)
	if err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	if !existed {
		s.printf("%% Alias %q did not exist, created empty\r\n", sp.AliasName)
	}
	s.printf("ifcond #%d created\r\n", id)
	return shellerr.Success
}
