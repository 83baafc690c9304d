package convar

import "testing"

func newIntCell(r *Registry, name string, kind Kind) *int {
	v := new(int)
	r.Add(name, kind, 4,
		func() float64 { return float64(*v) },
		func(f float64) error { *v = int(f); return nil },
	)
	return v
}

func TestLookupExactAndPrefix(t *testing.T) {
	r := NewRegistry()
	newIntCell(r, "ledc_res", Unsigned)
	newIntCell(r, "ledc_timer", Unsigned)

	if _, err := r.Lookup("ledc_res"); err != nil {
		t.Fatalf("exact lookup failed: %v", err)
	}
	if _, err := r.Lookup("led"); err == nil {
		t.Fatalf("ambiguous prefix should fail")
	}
	if c, err := r.Lookup("ledc_r"); err != nil || c.Name != "ledc_res" {
		t.Fatalf("unambiguous prefix lookup = %v, %v", c, err)
	}
	if _, err := r.Lookup("nope"); err == nil {
		t.Fatalf("unknown name should fail")
	}
}

func TestAddArrayNames(t *testing.T) {
	r := NewRegistry()
	backing := make([]int, 3)
	r.AddArray("tbl", Signed, 4, 3,
		func(i int) float64 { return float64(backing[i]) },
		func(i int, v float64) error { backing[i] = int(v); return nil },
	)
	c, err := r.Lookup("tbl[1]")
	if err != nil {
		t.Fatalf("tbl[1] lookup: %v", err)
	}
	if err := c.Set(7); err != nil {
		t.Fatal(err)
	}
	if backing[1] != 7 {
		t.Errorf("Set through AddArray cell did not reach backing store: %v", backing)
	}
	if backing[0] != 0 || backing[2] != 0 {
		t.Errorf("Set leaked into other array slots: %v", backing)
	}
}

func TestParseValueBases(t *testing.T) {
	c := &Cell{Name: "x", Kind: Signed}
	tests := []struct {
		in   string
		want float64
	}{
		{"10", 10},
		{"-10", -10},
		{"0x1F", 31},
		{"0b101", 5},
		{"010", 8},
	}
	for _, tc := range tests {
		got, err := c.ParseValue(tc.in)
		if err != nil {
			t.Errorf("ParseValue(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseValue(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseValueUnsignedRejectsNegative(t *testing.T) {
	c := &Cell{Name: "x", Kind: Unsigned}
	if _, err := c.ParseValue("-1"); err == nil {
		t.Errorf("unsigned cell should reject a negative value")
	}
}

func TestParseValueFloatRequiresDecimalPoint(t *testing.T) {
	c := &Cell{Name: "x", Kind: Float}
	if _, err := c.ParseValue("3"); err == nil {
		t.Errorf("float assignment without a decimal point should fail")
	}
	v, err := c.ParseValue("3.5")
	if err != nil || v != 3.5 {
		t.Errorf("ParseValue(3.5) = %v, %v", v, err)
	}
}

func TestFormatByKind(t *testing.T) {
	tests := []struct {
		kind Kind
		val  float64
		want string
	}{
		{Signed, -4, "-4"},
		{Unsigned, 4, "4"},
		{Float, 1.5, "1.5"},
		{Pointer, 255, "0xff"},
	}
	for _, tc := range tests {
		c := &Cell{Kind: tc.kind, Get: func() float64 { return tc.val }}
		if got := c.Format(); got != tc.want {
			t.Errorf("Format(%v, %v) = %q, want %q", tc.kind, tc.val, got, tc.want)
		}
	}
}
