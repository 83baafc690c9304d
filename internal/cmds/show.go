package cmds

import (
	"periph.io/x/periph/conn/gpio"

	"github.com/vvb333007/gopshell/internal/dispatch"
	"github.com/vvb333007/gopshell/internal/pwm"
	"github.com/vvb333007/gopshell/internal/shellerr"
)

// cmdShow implements "show pwm|ifs|sequence|pins|cpu|alias|uptime", the
// read-only state aggregator spec.md's supplemented feature set adds.
func (s *Shell) cmdShow(ctx *dispatch.Context, argv []string) shellerr.Code {
	if len(argv) < 2 {
		return shellerr.MissingArg
	}
	switch argv[1] {
	case "pwm":
		for _, row := range pwm.Show() {
			s.printf("GPIO%-3d freq=%dHz duty=%.2f\r\n", row.Pin, row.Freq, row.Duty)
		}
	case "ifs", "if":
		for _, ent := range s.Engine.List() {
			s.printf("#%-3d %-10s pin=%-3d alive=%v disabled=%v hits=%d drops=%d alias=%s\r\n",
				ent.ID, ent.Class, ent.Pin, ent.Alive.Load(), ent.Disabled.Load(), ent.Hits(), ent.Drops(), ent.AliasName)
		}
	case "sequence":
		for _, seq := range s.Seqs.List() {
			symbols, err := seq.Compiled()
			if err != nil {
				s.printf("seq %-3d <%v>\r\n", seq.ID, err)
				continue
			}
			s.printf("seq %-3d %d symbols @ %.0f Hz\r\n", seq.ID, len(symbols), seq.Frequency())
		}
	case "pins":
		for p := 0; p < 40; p++ {
			if saved, ok := s.Saved.Load(p); ok {
				s.printf("GPIO%-3d flags=0x%x level=%s\r\n", p, saved.Flags, gpio.Level(saved.Level))
			}
		}
	case "cpu":
		return s.cmdCPU(ctx, argv)
	case "alias":
		for _, name := range s.Aliases.Names() {
			s.printf("%s\r\n", name)
		}
	case "uptime":
		return s.cmdUptime(ctx, argv)
	default:
		return shellerr.BadArg(1)
	}
	return shellerr.Success
}
