package sequence

import "testing"

func TestRegistryGetCreatesOnMiss(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup(5); ok {
		t.Fatalf("sequence 5 should not exist yet")
	}
	s := r.Get(5)
	if s.ID != 5 {
		t.Fatalf("Get(5).ID = %d", s.ID)
	}
	if s2 := r.Get(5); s2 != s {
		t.Errorf("Get(5) twice should return the same instance")
	}
}

func TestRegistryListSortedByID(t *testing.T) {
	r := NewRegistry()
	r.Get(3)
	r.Get(1)
	r.Get(2)
	list := r.List()
	if len(list) != 3 {
		t.Fatalf("List() len = %d, want 3", len(list))
	}
	for i := range list {
		if list[i].ID != i+1 {
			t.Errorf("List()[%d].ID = %d, want %d", i, list[i].ID, i+1)
		}
	}
}

func TestRegistryDelete(t *testing.T) {
	r := NewRegistry()
	r.Get(1)
	r.Delete(1)
	if _, ok := r.Lookup(1); ok {
		t.Errorf("sequence 1 should be gone after Delete")
	}
}
