//go:build darwin

package inject

import "github.com/go-vgo/robotgo"

type systemKeyboard struct{}

// NewSystemKeyboard returns a Keyboard that sends Cmd shortcuts.
func NewSystemKeyboard() (Keyboard, error) {
	return systemKeyboard{}, nil
}

func (systemKeyboard) SelectAll() error { return robotgo.KeyTap("a", "cmd") }

func (systemKeyboard) Backspace() error { return robotgo.KeyTap("backspace") }

func (systemKeyboard) Paste() error { return robotgo.KeyTap("v", "cmd") }

func (systemKeyboard) Type(s string) error {
	robotgo.TypeStr(s)
	return nil
}
