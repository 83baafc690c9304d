package alias

import (
	"testing"

	"github.com/vvb333007/gopshell/internal/token"
)

func TestRegistryGetCreatesOnce(t *testing.T) {
	r := NewRegistry()
	a, existed := r.Get("boot")
	if existed {
		t.Fatalf("first Get should report existed=false")
	}
	a2, existed := r.Get("boot")
	if !existed || a2 != a {
		t.Fatalf("second Get should return the same *Alias, existed=true")
	}
}

func TestEnsureExists(t *testing.T) {
	r := NewRegistry()
	if r.EnsureExists("new") {
		t.Fatalf("EnsureExists on a fresh name should report false")
	}
	if !r.EnsureExists("new") {
		t.Fatalf("EnsureExists on an existing name should report true")
	}
}

func TestAliasAppendAndList(t *testing.T) {
	a := &Alias{Name: "boot"}
	a.Append("pin 2 out high")
	a.Append("pin 3 out low")
	got := a.List()
	want := []string{"pin 2 out high", "pin 3 out low"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAliasDeleteOneAndAll(t *testing.T) {
	a := &Alias{Name: "boot"}
	a.Append("one")
	a.Append("two")
	a.Append("three")

	if err := a.Delete(1, false); err != nil {
		t.Fatal(err)
	}
	if got := a.List(); len(got) != 2 || got[0] != "one" || got[1] != "three" {
		t.Fatalf("after deleting index 1: %v", got)
	}

	if err := a.Delete(5, false); err == nil {
		t.Errorf("deleting an out-of-range index should fail")
	}

	if err := a.Delete(0, true); err != nil {
		t.Fatal(err)
	}
	if got := a.List(); len(got) != 0 {
		t.Fatalf("Delete(all) left %v", got)
	}
}

func TestRunDispatchesEachLineInOrder(t *testing.T) {
	r := NewRegistry()
	a, _ := r.Get("boot")
	a.Append("first")
	a.Append("second")

	var seen []string
	r.Dispatch = func(rec *token.Record) { seen = append(seen, rec.Raw) }

	if err := r.Run("boot"); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != "first" || seen[1] != "second" {
		t.Fatalf("Run dispatch order = %v", seen)
	}
}

func TestRunMissingAliasOrDispatcher(t *testing.T) {
	r := NewRegistry()
	if err := r.Run("nope"); err == nil {
		t.Errorf("Run on an unknown alias should fail")
	}
	r.Get("boot")
	if err := r.Run("boot"); err == nil {
		t.Errorf("Run without a wired Dispatch should fail")
	}
}
