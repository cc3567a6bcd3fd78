// Package hotkey reports global key press and release edges.
package hotkey

import (
	"strconv"
	"strings"
)

// Edge is a single key transition. Key is a normalized key name such as
// "ctrl_l", "f9" or "a".
type Edge struct {
	Key  string
	Down bool
}

var aliases = map[string]string{
	"control":     "ctrl",
	"option":      "alt",
	"menu":        "alt",
	"command":     "cmd",
	"win":         "cmd",
	"super":       "cmd",
	"meta":        "cmd",
	"escape":      "esc",
	"return":      "enter",
	"capslock":    "caps_lock",
	"ctrl_left":   "ctrl_l",
	"ctrl_right":  "ctrl_r",
	"shift_left":  "shift_l",
	"shift_right": "shift_r",
	"alt_left":    "alt_l",
	"alt_right":   "alt_r",
	"alt_gr":      "alt_r",
	"cmd_left":    "cmd_l",
	"cmd_right":   "cmd_r",
}

// modifiers can be bound without a side and then match either side.
var modifiers = map[string]bool{"ctrl": true, "shift": true, "alt": true, "cmd": true}

var named = map[string]bool{
	"esc": true, "space": true, "enter": true, "tab": true, "backspace": true,
	"caps_lock": true, "up": true, "down": true, "left": true, "right": true,
}

// NormalizeKey lower-cases a key name and resolves aliases.
func NormalizeKey(s string) string {
	k := strings.ToLower(strings.TrimSpace(s))
	k = strings.ReplaceAll(k, " ", "_")
	if v, ok := aliases[k]; ok {
		return v
	}
	return k
}

// Valid reports whether binding names a key the listeners can report.
func Valid(binding string) bool {
	k := NormalizeKey(binding)
	if modifiers[k] || named[k] {
		return true
	}
	if base, side, ok := strings.Cut(k, "_"); ok && modifiers[base] && (side == "l" || side == "r") {
		return true
	}
	if len(k) == 1 && (k[0] >= 'a' && k[0] <= 'z' || k[0] >= '0' && k[0] <= '9') {
		return true
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(k, "f")); err == nil && strings.HasPrefix(k, "f") && n >= 1 && n <= 24 {
		return true
	}
	return false
}

// Matches reports whether key satisfies binding. A modifier bound without a
// side ("ctrl") matches both the left and right key.
func Matches(binding, key string) bool {
	b, k := NormalizeKey(binding), NormalizeKey(key)
	if b == "" {
		return false
	}
	if b == k {
		return true
	}
	return modifiers[b] && (k == b+"_l" || k == b+"_r")
}
