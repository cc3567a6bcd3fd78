package hotkey

import "testing"

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"Ctrl":        "ctrl",
		" control ":   "ctrl",
		"Escape":      "esc",
		"Caps Lock":   "caps_lock",
		"shift_right": "shift_r",
		"F9":          "f9",
	}
	for in, want := range cases {
		if got := NormalizeKey(in); got != want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatches(t *testing.T) {
	cases := []struct {
		binding, key string
		want         bool
	}{
		{"ctrl", "ctrl_l", true},
		{"ctrl", "ctrl_r", true},
		{"ctrl", "ctrl", true},
		{"ctrl_l", "ctrl_r", false},
		{"ctrl", "shift_l", false},
		{"f9", "F9", true},
		{"a", "b", false},
		{"", "ctrl_l", false},
		{"alt", "alt_r", true},
	}
	for _, tc := range cases {
		if got := Matches(tc.binding, tc.key); got != tc.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tc.binding, tc.key, got, tc.want)
		}
	}
}

func TestValid(t *testing.T) {
	for _, k := range []string{"ctrl", "ctrl_r", "shift", "cmd_l", "esc", "space", "f1", "f24", "a", "7"} {
		if !Valid(k) {
			t.Errorf("Valid(%q) = false", k)
		}
	}
	for _, k := range []string{"", "f0", "f25", "hyper", "ctrl_x", "ab"} {
		if Valid(k) {
			t.Errorf("Valid(%q) = true", k)
		}
	}
}
