package roles

import (
	"testing"

	"wallet-roster/internal/domain"
)

func testList(t *testing.T) *PriorityList {
	t.Helper()
	list, err := NewPriorityList([]Role{
		{ID: "100", Label: "Admin"},
		{ID: "200", Label: "Boss"},
		{ID: "300", Label: "Capo"},
		{ID: "400", Label: "Soldier"},
	})
	if err != nil {
		t.Fatalf("NewPriorityList: %v", err)
	}
	return list
}

func TestResolve_FirstMatchWins(t *testing.T) {
	list := testList(t)

	cases := []struct {
		name string
		held []string
		want string
	}{
		{"highest of several", []string{"300", "200", "400"}, "Boss"},
		{"single match", []string{"400"}, "Soldier"},
		{"top priority", []string{"100", "400"}, "Admin"},
		{"no match", []string{"900", "901"}, ""},
		{"empty held set", nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := list.Resolve(domain.NewHeldRoles(tc.held))
			if got != tc.want {
				t.Errorf("Resolve(%v) = %q, want %q", tc.held, got, tc.want)
			}
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	list := testList(t)
	held := domain.NewHeldRoles([]string{"300", "400"})

	first := list.Resolve(held)
	for i := 0; i < 10; i++ {
		if got := list.Resolve(held); got != first {
			t.Fatalf("Resolve not idempotent: got %q then %q", first, got)
		}
	}
}

func TestHoldsAny(t *testing.T) {
	list := testList(t)

	if !list.HoldsAny(domain.NewHeldRoles([]string{"400"})) {
		t.Error("expected HoldsAny true for held priority role")
	}
	if list.HoldsAny(domain.NewHeldRoles([]string{"999"})) {
		t.Error("expected HoldsAny false for non-priority role")
	}
	if list.HoldsAny(nil) {
		t.Error("expected HoldsAny false for empty held set")
	}
}

func TestNewPriorityList_Validation(t *testing.T) {
	if _, err := NewPriorityList(nil); err == nil {
		t.Error("expected error for empty list")
	}
	if _, err := NewPriorityList([]Role{{ID: "", Label: "x"}}); err == nil {
		t.Error("expected error for missing id")
	}
	if _, err := NewPriorityList([]Role{{ID: "1", Label: ""}}); err == nil {
		t.Error("expected error for missing label")
	}
	if _, err := NewPriorityList([]Role{{ID: "1", Label: "a"}, {ID: "1", Label: "b"}}); err == nil {
		t.Error("expected error for duplicate id")
	}
}

func TestNewPriorityList_CopiesInput(t *testing.T) {
	entries := []Role{{ID: "1", Label: "a"}, {ID: "2", Label: "b"}}
	list, err := NewPriorityList(entries)
	if err != nil {
		t.Fatalf("NewPriorityList: %v", err)
	}

	entries[0].ID = "mutated"
	if got := list.Resolve(domain.NewHeldRoles([]string{"1"})); got != "a" {
		t.Errorf("list shares memory with caller input: Resolve = %q", got)
	}
}

func TestParsePriorityList(t *testing.T) {
	data := []byte(`[{"id":"100","label":"Admin"},{"id":"200","label":"Boss"}]`)

	list, err := ParsePriorityList(data)
	if err != nil {
		t.Fatalf("ParsePriorityList: %v", err)
	}
	if list.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", list.Len())
	}
	if got := list.Resolve(domain.NewHeldRoles([]string{"200"})); got != "Boss" {
		t.Errorf("Resolve = %q, want Boss", got)
	}

	if _, err := ParsePriorityList([]byte(`{`)); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := ParsePriorityList([]byte(`[]`)); err == nil {
		t.Error("expected error for empty array")
	}
}
