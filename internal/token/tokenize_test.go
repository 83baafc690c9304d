package token

import "testing"

var tokenizeTests = []struct {
	Desc   string
	Raw    string
	Tokens []string
}{
	{Desc: "empty", Raw: "", Tokens: nil},
	{Desc: "single", Raw: "pin", Tokens: []string{"pin"}},
	{Desc: "basic", Raw: "pin 2 out", Tokens: []string{"pin", "2", "out"}},
	{Desc: "leading/trailing space", Raw: "  pin 2  ", Tokens: []string{"pin", "2"}},
	{Desc: "tabs", Raw: "pin\t2\tout", Tokens: []string{"pin", "2", "out"}},
	{Desc: "quoted", Raw: `alias foo "a b c"`, Tokens: []string{"alias", "foo", "a b c"}},
	{Desc: "unterminated quote", Raw: `uart 0 write "abc`, Tokens: []string{"uart", "0", "write", "abc"}},
	{Desc: "empty quoted", Raw: `a ""`, Tokens: []string{"a", ""}},
}

func TestTokenize(t *testing.T) {
	for _, tc := range tokenizeTests {
		t.Run(tc.Desc, func(t *testing.T) {
			rec := Tokenize(tc.Raw)
			if len(rec.Tokens) != len(tc.Tokens) {
				t.Fatalf("token count = %d, want %d (%v)", len(rec.Tokens), len(tc.Tokens), rec.Tokens)
			}
			for i := range tc.Tokens {
				if rec.Tokens[i] != tc.Tokens[i] {
					t.Errorf("token[%d] = %q, want %q", i, rec.Tokens[i], tc.Tokens[i])
				}
			}
			if rec.NTokens != len(tc.Tokens) || rec.NEff != len(tc.Tokens) {
				t.Errorf("NTokens/NEff = %d/%d, want %d", rec.NTokens, rec.NEff, len(tc.Tokens))
			}
			if rec.RefCount() != 1 {
				t.Errorf("fresh record refcount = %d, want 1", rec.RefCount())
			}
		})
	}
}

func TestJoinRoundTrip(t *testing.T) {
	raw := "pin 2 out high"
	rec := Tokenize(raw)
	if got := Join(rec.Tokens); got != raw {
		t.Errorf("Join(Tokenize(%q)) = %q, want %q", raw, got, raw)
	}
}

func TestRefCountBalance(t *testing.T) {
	rec := New("x", []string{"x"})
	rec.Ref()
	rec.Ref()
	if rec.RefCount() != 3 {
		t.Fatalf("refcount after two Ref() = %d, want 3", rec.RefCount())
	}
	if rec.Unref() {
		t.Fatalf("Unref at count 3->2 reported zero")
	}
	if rec.Unref() {
		t.Fatalf("Unref at count 2->1 reported zero")
	}
	if !rec.Unref() {
		t.Fatalf("Unref at count 1->0 should report zero")
	}
}

func TestUnrefUnderflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on refcount underflow")
		}
	}()
	rec := New("x", []string{"x"})
	rec.Unref()
	rec.Unref()
}

func TestExpandEscapes(t *testing.T) {
	tests := []struct {
		in   []string
		want string
	}{
		{[]string{`a\nb`}, "a\nb"},
		{[]string{`a\tb`}, "a\tb"},
		{[]string{`a\x41b`}, "aAb"},
		{[]string{`a\\b`}, `a\b`},
		{[]string{"a", "b"}, "a b"},
	}
	for _, tc := range tests {
		if got := ExpandEscapes(tc.in); got != tc.want {
			t.Errorf("ExpandEscapes(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
