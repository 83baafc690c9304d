package cmds

import (
	"strconv"

	"github.com/vvb333007/gopshell/internal/dispatch"
	"github.com/vvb333007/gopshell/internal/sequence"
	"github.com/vvb333007/gopshell/internal/shellerr"
)

func (s *Shell) registerSequenceDirectory() {
	dispatch.Register(&dispatch.Directory{
		Name:   "sequence",
		Prompt: "%s-seq%d>",
		Keywords: []dispatch.Keyword{
			{Name: "tick", Handler: s.cmdSeqTick, Argc: 1, Brief: "set tick length (us)"},
			{Name: "zero", Handler: s.cmdSeqZero, Argc: dispatch.ManyArgs, Brief: "set the zero symbol"},
			{Name: "one", Handler: s.cmdSeqOne, Argc: dispatch.ManyArgs, Brief: "set the one symbol"},
			{Name: "bits", Handler: s.cmdSeqBits, Argc: 1, Brief: "set the bit string"},
			{Name: "loop", Handler: s.cmdSeqLoop, Argc: 1, Brief: "set the loop count"},
			{Name: "eot", Handler: s.cmdSeqEOT, Argc: 1, Brief: "set end-of-transmission level"},
			{Name: "show", Handler: s.cmdSeqShow, Argc: dispatch.NoArgs, Brief: "compile and show the symbol array"},
			{Name: "quit", Handler: s.cmdExit, Argc: dispatch.NoArgs, Brief: "leave the sequence directory"},
		},
	})
}

func (s *Shell) cmdSequence(ctx *dispatch.Context, argv []string) shellerr.Code {
	id, err := strconv.Atoi(argv[1])
	if err != nil {
		return shellerr.BadArg(1)
	}
	s.Seqs.Get(id)
	ctx.Switch("sequence", id)
	return shellerr.Success
}

func (s *Shell) cmdSeqTick(ctx *dispatch.Context, argv []string) shellerr.Code {
	us, err := strconv.ParseFloat(argv[1], 64)
	if err != nil {
		return shellerr.BadArg(1)
	}
	seq := s.Seqs.Get(ctx.Value)
	if err := seq.SetTick(us); err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	s.printf("resolution: %.0f Hz\r\n", seq.Frequency())
	return shellerr.Success
}

func (s *Shell) cmdSeqZero(ctx *dispatch.Context, argv []string) shellerr.Code {
	return s.setAlphabet(ctx, argv, true)
}

func (s *Shell) cmdSeqOne(ctx *dispatch.Context, argv []string) shellerr.Code {
	return s.setAlphabet(ctx, argv, false)
}

func (s *Shell) setAlphabet(ctx *dispatch.Context, argv []string, zero bool) shellerr.Code {
	if len(argv) < 2 {
		return shellerr.MissingArg
	}
	var a sequence.Alphabet
	var err error
	if len(argv) >= 3 {
		a, err = sequence.ParseLong(argv[1] + "," + argv[2])
	} else {
		a, err = sequence.ParseShort(argv[1])
	}
	if err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	seq := s.Seqs.Get(ctx.Value)
	if zero {
		seq.SetZero(a)
	} else {
		seq.SetOne(a)
	}
	return shellerr.Success
}

func (s *Shell) cmdSeqBits(ctx *dispatch.Context, argv []string) shellerr.Code {
	seq := s.Seqs.Get(ctx.Value)
	if err := seq.SetBits(argv[1]); err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	return shellerr.Success
}

func (s *Shell) cmdSeqLoop(ctx *dispatch.Context, argv []string) shellerr.Code {
	seq := s.Seqs.Get(ctx.Value)
	if argv[1] == "inf" {
		seq.Loop = sequence.LoopCount{Infinite: true}
		return shellerr.Success
	}
	n, err := strconv.Atoi(argv[1])
	if err != nil || n < 1 {
		return shellerr.BadArg(1)
	}
	seq.Loop = sequence.LoopCount{Count: n}
	return shellerr.Success
}

func (s *Shell) cmdSeqEOT(ctx *dispatch.Context, argv []string) shellerr.Code {
	seq := s.Seqs.Get(ctx.Value)
	switch argv[1] {
	case "0":
		seq.EOTHigh = false
	case "1":
		seq.EOTHigh = true
	default:
		return shellerr.BadArg(1)
	}
	return shellerr.Success
}

func (s *Shell) cmdSeqShow(ctx *dispatch.Context, argv []string) shellerr.Code {
	seq := s.Seqs.Get(ctx.Value)
	padded, err := seq.Compile()
	if err != nil {
		s.printf("%% %v\r\n", err)
		return shellerr.Failed
	}
	if padded {
		s.printf("%% odd bit count, last bit duplicated\r\n")
	}
	symbols, _ := seq.Compiled()
	s.printf("%d symbols, resolution %.0f Hz\r\n", len(symbols), seq.Frequency())
	for i, sym := range symbols {
		s.printf("  [%d] %v/%d %v/%d\r\n", i, b2i(sym.A.High), sym.A.Ticks, b2i(sym.B.High), sym.B.Ticks)
	}
	return shellerr.Success
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
