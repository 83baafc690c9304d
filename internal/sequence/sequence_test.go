package sequence

import "testing"

func mustAlphabet(t *testing.T, spec string, long bool) Alphabet {
	t.Helper()
	var a Alphabet
	var err error
	if long {
		a, err = ParseLong(spec)
	} else {
		a, err = ParseShort(spec)
	}
	if err != nil {
		t.Fatalf("parse %q: %v", spec, err)
	}
	return a
}

func TestParseShortAndLong(t *testing.T) {
	a, err := ParseShort("1/32")
	if err != nil || !a.IsSet() {
		t.Fatalf("ParseShort(1/32) = %+v, %v", a, err)
	}
	if !a.short.High || a.short.Ticks != 32 {
		t.Errorf("ParseShort half = %+v", a.short)
	}

	p, err := ParseLong("1/8,0/16")
	if err != nil || !p.IsSet() || !p.long {
		t.Fatalf("ParseLong(1/8,0/16) = %+v, %v", p, err)
	}
	if !p.pulse.A.High || p.pulse.A.Ticks != 8 || p.pulse.B.High || p.pulse.B.Ticks != 16 {
		t.Errorf("ParseLong pulse = %+v", p.pulse)
	}

	if _, err := ParseShort("2/4"); err == nil {
		t.Errorf("level 2 should be rejected")
	}
	if _, err := ParseLong("1/8"); err == nil {
		t.Errorf("single half should be rejected in long form")
	}
}

func TestCompileShortFormEvenBits(t *testing.T) {
	s := New(0)
	s.SetZero(mustAlphabet(t, "0/32", false))
	s.SetOne(mustAlphabet(t, "1/32", false))
	if err := s.SetBits("1010"); err != nil {
		t.Fatal(err)
	}
	padded, err := s.Compile()
	if err != nil {
		t.Fatal(err)
	}
	if padded {
		t.Errorf("even bit count should not be padded")
	}
	symbols, err := s.Compiled()
	if err != nil {
		t.Fatal(err)
	}
	if len(symbols) != 2 {
		t.Fatalf("short form, 4 bits -> 2 symbols, got %d", len(symbols))
	}
}

func TestCompileShortFormOddBitsPadsByDuplicatingLastBit(t *testing.T) {
	s := New(0)
	s.SetZero(mustAlphabet(t, "0/32", false))
	s.SetOne(mustAlphabet(t, "1/32", false))
	if err := s.SetBits("101"); err != nil {
		t.Fatal(err)
	}
	padded, err := s.Compile()
	if err != nil {
		t.Fatal(err)
	}
	if !padded {
		t.Fatalf("odd bit count must be padded")
	}
	symbols, err := s.Compiled()
	if err != nil {
		t.Fatal(err)
	}
	if len(symbols) != 2 {
		t.Fatalf("padded 3->4 bits should compile to 2 symbols, got %d", len(symbols))
	}
	// last bit duplicated: original "101" -> "1011", second symbol is bits[2:4] = "11"
	if !symbols[1].A.High || !symbols[1].B.High {
		t.Errorf("padding should duplicate the last bit ('1'), got %+v", symbols[1])
	}
}

func TestCompileLongFormHeadTail(t *testing.T) {
	s := New(1)
	s.SetZero(mustAlphabet(t, "1/8,0/16", true))
	s.SetOne(mustAlphabet(t, "1/16,0/8", true))
	head := Symbol{A: Half{High: true, Ticks: 100}, B: Half{High: false, Ticks: 1}}
	tail := Symbol{A: Half{High: false, Ticks: 1}, B: Half{High: false, Ticks: 100}}
	if err := s.SetHeadTail(&head, &tail); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBits("10"); err != nil {
		t.Fatal(err)
	}
	_, err := s.Compile()
	if err != nil {
		t.Fatal(err)
	}
	symbols, _ := s.Compiled()
	if len(symbols) != 4 { // head + 2 bits + tail
		t.Fatalf("long form with head/tail: got %d symbols, want 4", len(symbols))
	}
	if symbols[0] != head || symbols[3] != tail {
		t.Errorf("head/tail not placed at the ends: %+v", symbols)
	}
}

func TestSetHeadTailMustBePaired(t *testing.T) {
	s := New(0)
	head := Symbol{}
	if err := s.SetHeadTail(&head, nil); err == nil {
		t.Errorf("setting only head should fail")
	}
}

func TestCompileRequiresMatchingForm(t *testing.T) {
	s := New(0)
	s.SetZero(mustAlphabet(t, "0/32", false))
	s.SetOne(mustAlphabet(t, "1/8,0/8", true))
	s.SetBits("1")
	if _, err := s.Compile(); err == nil {
		t.Errorf("mismatched zero/one form should fail to compile")
	}
}

func TestCompileIsIdempotent(t *testing.T) {
	s := New(0)
	s.SetZero(mustAlphabet(t, "0/32", false))
	s.SetOne(mustAlphabet(t, "1/32", false))
	s.SetBits("1100")
	first, err := s.Compiled()
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Compiled()
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) {
		t.Fatalf("recompiling changed symbol count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("symbol %d differs across compiles: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSetTickRange(t *testing.T) {
	s := New(0)
	if err := s.SetTick(1.0); err != nil {
		t.Fatal(err)
	}
	if err := s.SetTick(0.001); err == nil {
		t.Errorf("tick below minimum should be rejected")
	}
	if err := s.SetTick(10); err == nil {
		t.Errorf("tick above maximum should be rejected")
	}
}
