package domain

import "testing"

func TestValidWalletAddress(t *testing.T) {
	cases := []struct {
		addr string
		want bool
	}{
		{"0x52908400098527886E0F7030069857D2E4169EE7", true},
		{"0xde709f2102306220921060314715629080e2fb77", true},
		{"0xDE709F2102306220921060314715629080E2Fb77", true},
		{"52908400098527886E0F7030069857D2E4169EE7", false},  // missing prefix
		{"0x52908400098527886E0F7030069857D2E4169EE", false}, // 39 digits
		{"0x52908400098527886E0F7030069857D2E4169EE7a", false},
		{"0x52908400098527886E0F7030069857D2E4169EG7", false}, // non-hex
		{"", false},
		{"0x", false},
	}

	for _, tc := range cases {
		if got := ValidWalletAddress(tc.addr); got != tc.want {
			t.Errorf("ValidWalletAddress(%q) = %v, want %v", tc.addr, got, tc.want)
		}
	}
}

func TestNewHeldRoles(t *testing.T) {
	held := NewHeldRoles([]string{"a", "b", "", "a"})

	if len(held) != 2 {
		t.Errorf("expected 2 roles, got %d", len(held))
	}
	if !held.Has("a") || !held.Has("b") {
		t.Error("expected roles a and b to be held")
	}
	if held.Has("") {
		t.Error("empty role ID must not be held")
	}
	if held.Has("c") {
		t.Error("role c must not be held")
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"refresh", "fill", "prune"} {
		m, err := ParseMode(s)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", s, err)
		}
		if m.String() != s {
			t.Errorf("ParseMode(%q) = %q", s, m)
		}
	}

	if _, err := ParseMode("purge"); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := ParseMode(""); err == nil {
		t.Error("expected error for empty mode")
	}
}
